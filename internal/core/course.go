package core

import (
	"fmt"
	"math"
	"time"
)

type CourseCategory string

const (
	CourseEntrepreneurship CourseCategory = "empreendedorismo"
	CourseProductivity     CourseCategory = "produtividade"
	CourseMarketing        CourseCategory = "marketing"
	CourseFinance          CourseCategory = "financas"
	CourseSales            CourseCategory = "vendas"
	CourseOther            CourseCategory = "outros"
)

func (c CourseCategory) Valid() bool {
	switch c {
	case CourseEntrepreneurship, CourseProductivity, CourseMarketing,
		CourseFinance, CourseSales, CourseOther:
		return true
	}
	return false
}

type Lesson struct {
	Title     string `json:"title" yaml:"title"`
	Duration  int    `json:"duration" yaml:"duration"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// Course is a catalog entry with the owner's progress through it.
// Duration is in minutes.
type Course struct {
	ID          string         `json:"id" yaml:"id"`
	UserID      string         `json:"userId,omitempty" yaml:"-"`
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description" yaml:"description"`
	Duration    int            `json:"duration" yaml:"duration"`
	Progress    int            `json:"progress" yaml:"progress"`
	IsPremium   bool           `json:"isPremium" yaml:"isPremium"`
	Category    CourseCategory `json:"category" yaml:"category"`
	Thumbnail   string         `json:"thumbnail,omitempty" yaml:"thumbnail"`
	Lessons     []Lesson       `json:"lessons" yaml:"lessons"`
	CreatedAt   time.Time      `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time      `json:"updatedAt" yaml:"-"`
}

type CoursePatch struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Duration    *int            `json:"duration,omitempty"`
	IsPremium   *bool           `json:"isPremium,omitempty"`
	Category    *CourseCategory `json:"category,omitempty"`
	Thumbnail   *string         `json:"thumbnail,omitempty"`
	Lessons     []Lesson        `json:"lessons,omitempty"`
}

func (c Course) Validate() error {
	if err := validateTitle(c.Title); err != nil {
		return err
	}
	if !c.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, c.Category)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, c.Duration)
	}
	for _, l := range c.Lessons {
		if err := validateTitle(l.Title); err != nil {
			return fmt.Errorf("lesson: %w", err)
		}
		if l.Duration < 0 {
			return fmt.Errorf("lesson %q: %w", l.Title, ErrInvalidDuration)
		}
	}
	return validateProgress(c.Progress)
}

func (c *Course) Apply(p CoursePatch) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Duration != nil {
		c.Duration = *p.Duration
	}
	if p.IsPremium != nil {
		c.IsPremium = *p.IsPremium
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Thumbnail != nil {
		c.Thumbnail = *p.Thumbnail
	}
	if p.Lessons != nil {
		c.Lessons = p.Lessons
	}
}

type CourseStats struct {
	TotalCourses      int `json:"totalCourses"`
	CompletedCourses  int `json:"completedCourses"`
	InProgressCourses int `json:"inProgressCourses"`
	NotStartedCourses int `json:"notStartedCourses"`
	AverageProgress   int `json:"averageProgress"`
}

// ComputeCourseStats buckets courses by progress. The average is rounded
// half away from zero and is 0 for an empty catalog.
func ComputeCourseStats(courses []Course) CourseStats {
	s := CourseStats{TotalCourses: len(courses)}
	sum := 0
	for _, c := range courses {
		sum += c.Progress
		switch {
		case c.Progress == 100:
			s.CompletedCourses++
		case c.Progress > 0:
			s.InProgressCourses++
		case c.Progress == 0:
			s.NotStartedCourses++
		}
	}
	if s.TotalCourses > 0 {
		s.AverageProgress = int(math.Round(float64(sum) / float64(s.TotalCourses)))
	}
	return s
}
