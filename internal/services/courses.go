package services

import (
	"context"
	"fmt"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
	"mamaboss/internal/storage"
)

type CourseService struct {
	deps    Deps
	courses collection[core.Course]
	plans   PlanResolver
	slog    *log.StructuredLogger
}

// NewCourseService creates the courses module. A user's first read seeds
// the catalog's starter courses. plans gates progress on premium courses;
// nil disables the gate.
func NewCourseService(deps Deps, catalog *Catalog, plans PlanResolver) *CourseService {
	deps = deps.withDefaults()
	courses := newCollection[core.Course](deps, storage.KeyCourses)
	if catalog != nil {
		courses = courses.withSeed(func(userID string) []core.Course {
			return catalog.StarterCourses(userID, deps.now())
		})
	}
	return &CourseService{
		deps:    deps,
		courses: courses,
		plans:   plans,
		slog:    log.NewStructuredLogger(deps.Logger),
	}
}

// List returns the user's courses, saving the starter set on first use.
func (s *CourseService) List(ctx context.Context, userID string) ([]core.Course, error) {
	return s.courses.ensure(ctx, userID)
}

func (s *CourseService) Get(ctx context.Context, userID, id string) (core.Course, error) {
	courses, err := s.List(ctx, userID)
	if err != nil {
		return core.Course{}, err
	}
	i, err := indexOf(courses, id, courseID)
	if err != nil {
		return core.Course{}, err
	}
	return courses[i], nil
}

// Add appends a course with no progress.
func (s *CourseService) Add(ctx context.Context, userID string, in core.Course) (core.Course, error) {
	now := s.deps.now()
	c := core.Course{
		ID:          newID(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Duration:    in.Duration,
		IsPremium:   in.IsPremium,
		Category:    in.Category,
		Thumbnail:   in.Thumbnail,
		Lessons:     in.Lessons,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.Lessons == nil {
		c.Lessons = []core.Lesson{}
	}
	if err := c.Validate(); err != nil {
		return core.Course{}, err
	}
	err := s.courses.update(ctx, userID, func(courses []core.Course) ([]core.Course, error) {
		return append(courses, c), nil
	})
	if err != nil {
		return core.Course{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentCourses, log.OpCreate, userID, "course", c.ID)
	return c, nil
}

func (s *CourseService) Update(ctx context.Context, userID, id string, p core.CoursePatch) (core.Course, error) {
	return s.mutate(ctx, userID, id, func(c *core.Course) error {
		c.Apply(p)
		return c.Validate()
	})
}

// UpdateProgress clamps progress to 0..100. Premium courses need a
// premium plan.
func (s *CourseService) UpdateProgress(ctx context.Context, userID, id string, progress int) (core.Course, error) {
	course, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.Course{}, err
	}
	if course.IsPremium && s.plans != nil {
		plan, err := s.plans.CurrentPlan(ctx, userID)
		if err != nil {
			return core.Course{}, fmt.Errorf("resolve plan: %w", err)
		}
		if !plan.Premium {
			return core.Course{}, fmt.Errorf("%w: %q is a premium course", ErrPremiumRequired, course.Title)
		}
	}
	return s.mutate(ctx, userID, id, func(c *core.Course) error {
		c.Progress = core.ClampProgress(progress)
		return nil
	})
}

func (s *CourseService) Delete(ctx context.Context, userID, id string) error {
	err := s.courses.update(ctx, userID, func(courses []core.Course) ([]core.Course, error) {
		i, err := indexOf(courses, id, courseID)
		if err != nil {
			return nil, err
		}
		return remove(courses, i), nil
	})
	if err != nil {
		return err
	}
	s.slog.LogMutation(ctx, log.ComponentCourses, log.OpDelete, userID, "course", id)
	return nil
}

func (s *CourseService) ByCategory(ctx context.Context, userID string, c core.CourseCategory) ([]core.Course, error) {
	return s.filter(ctx, userID, func(course core.Course) bool { return course.Category == c })
}

// ByProgress returns the courses at exactly progress.
func (s *CourseService) ByProgress(ctx context.Context, userID string, progress int) ([]core.Course, error) {
	return s.filter(ctx, userID, func(course core.Course) bool { return course.Progress == progress })
}

func (s *CourseService) Premium(ctx context.Context, userID string) ([]core.Course, error) {
	return s.filter(ctx, userID, func(course core.Course) bool { return course.IsPremium })
}

func (s *CourseService) Free(ctx context.Context, userID string) ([]core.Course, error) {
	return s.filter(ctx, userID, func(course core.Course) bool { return !course.IsPremium })
}

func (s *CourseService) Stats(ctx context.Context, userID string) (core.CourseStats, error) {
	courses, err := s.List(ctx, userID)
	if err != nil {
		return core.CourseStats{}, err
	}
	return core.ComputeCourseStats(courses), nil
}

func (s *CourseService) mutate(ctx context.Context, userID, id string, fn func(*core.Course) error) (core.Course, error) {
	var out core.Course
	err := s.courses.update(ctx, userID, func(courses []core.Course) ([]core.Course, error) {
		i, err := indexOf(courses, id, courseID)
		if err != nil {
			return nil, err
		}
		c := courses[i]
		if err := fn(&c); err != nil {
			return nil, err
		}
		c.UpdatedAt = s.deps.now()
		courses[i] = c
		out = c
		return courses, nil
	})
	if err != nil {
		return core.Course{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentCourses, log.OpUpdate, userID, "course", id)
	return out, nil
}

func (s *CourseService) filter(ctx context.Context, userID string, keep func(core.Course) bool) ([]core.Course, error) {
	courses, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.Filter(courses, keep), nil
}

func courseID(c core.Course) string { return c.ID }
