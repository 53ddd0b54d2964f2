package services

import (
	"embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"mamaboss/internal/core"
)

//go:embed catalog/courses.yaml catalog/plans.yaml
var catalogFS embed.FS

// Product is a hosted checkout item.
type Product struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Price    core.Money `json:"price"`
	Currency string     `json:"currency"`
}

// Catalog is the static offer: plans, payment methods, checkout products
// and the starter courses.
type Catalog struct {
	DefaultPlanID string
	Plans         []core.Plan
	Methods       []core.PaymentMethod
	Products      []Product
	Courses       []core.Course

	productByPlan map[string]string
}

type planEntry struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Price       string          `yaml:"price"`
	Currency    string          `yaml:"currency"`
	Interval    string          `yaml:"interval"`
	Popular     bool            `yaml:"popular"`
	Premium     bool            `yaml:"premium"`
	Product     string          `yaml:"product"`
	Limits      core.PlanLimits `yaml:"limits"`
	Features    []string        `yaml:"features"`
}

type productEntry struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Price    string `yaml:"price"`
	Currency string `yaml:"currency"`
}

type plansFile struct {
	DefaultPlan    string               `yaml:"defaultPlan"`
	Plans          []planEntry          `yaml:"plans"`
	Products       []productEntry       `yaml:"products"`
	PaymentMethods []core.PaymentMethod `yaml:"paymentMethods"`
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	plans, err := catalogFS.ReadFile("catalog/plans.yaml")
	if err != nil {
		return nil, err
	}
	courses, err := catalogFS.ReadFile("catalog/courses.yaml")
	if err != nil {
		return nil, err
	}
	return ParseCatalog(plans, courses)
})

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return defaultCatalog()
}

// ParseCatalog decodes and validates the plans and courses documents.
func ParseCatalog(plansYAML, coursesYAML []byte) (*Catalog, error) {
	var pf plansFile
	if err := yaml.Unmarshal(plansYAML, &pf); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	c := &Catalog{
		DefaultPlanID: pf.DefaultPlan,
		Methods:       pf.PaymentMethods,
		productByPlan: map[string]string{},
	}

	for _, e := range pf.Plans {
		price, err := core.ParsePrice(e.Price)
		if err != nil {
			return nil, fmt.Errorf("plan %s: price %q: %w", e.ID, e.Price, err)
		}
		interval := core.BillingInterval(e.Interval)
		if interval != core.IntervalMonthly && interval != core.IntervalYearly {
			return nil, fmt.Errorf("plan %s: unknown interval %q", e.ID, e.Interval)
		}
		c.Plans = append(c.Plans, core.Plan{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Price:       price,
			Currency:    e.Currency,
			Interval:    interval,
			Features:    e.Features,
			IsPopular:   e.Popular,
			Premium:     e.Premium,
			Limits:      e.Limits,
		})
		if e.Product != "" {
			c.productByPlan[e.ID] = e.Product
		}
	}
	if _, ok := c.Plan(c.DefaultPlanID); !ok {
		return nil, fmt.Errorf("default plan %q: %w", c.DefaultPlanID, ErrPlanNotFound)
	}

	for _, e := range pf.Products {
		price, err := core.ParsePrice(e.Price)
		if err != nil {
			return nil, fmt.Errorf("product %s: price %q: %w", e.ID, e.Price, err)
		}
		c.Products = append(c.Products, Product{ID: e.ID, Title: e.Title, Price: price, Currency: e.Currency})
	}
	for plan, product := range c.productByPlan {
		if _, ok := c.Product(product); !ok {
			return nil, fmt.Errorf("plan %s: unknown product %q", plan, product)
		}
	}

	if err := yaml.Unmarshal(coursesYAML, &c.Courses); err != nil {
		return nil, fmt.Errorf("decode courses: %w", err)
	}
	for _, course := range c.Courses {
		if err := course.Validate(); err != nil {
			return nil, fmt.Errorf("course %s: %w", course.ID, err)
		}
	}
	return c, nil
}

func (c *Catalog) Plan(id string) (core.Plan, bool) {
	for _, p := range c.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return core.Plan{}, false
}

// DefaultPlan is the plan granted without an active subscription.
func (c *Catalog) DefaultPlan() core.Plan {
	p, _ := c.Plan(c.DefaultPlanID)
	return p
}

func (c *Catalog) Method(id string) (core.PaymentMethod, bool) {
	for _, m := range c.Methods {
		if m.ID == id {
			return m, true
		}
	}
	return core.PaymentMethod{}, false
}

func (c *Catalog) Product(id string) (Product, bool) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// ProductForPlan returns the checkout product that sells planID.
func (c *Catalog) ProductForPlan(planID string) (Product, bool) {
	id, ok := c.productByPlan[planID]
	if !ok {
		return Product{}, false
	}
	return c.Product(id)
}

// StarterCourses returns a fresh copy of the seeded courses owned by userID.
func (c *Catalog) StarterCourses(userID string, now time.Time) []core.Course {
	out := make([]core.Course, len(c.Courses))
	for i, course := range c.Courses {
		course.UserID = userID
		course.Lessons = append([]core.Lesson(nil), course.Lessons...)
		course.CreatedAt = now
		course.UpdatedAt = now
		out[i] = course
	}
	return out
}
