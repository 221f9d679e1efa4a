package document

import (
	"fmt"
	"strings"
	"time"
)

// Step is a wizard step.
type Step int

const (
	StepDetails Step = iota
	StepItems
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepDetails:
		return "Details"
	case StepItems:
		return "Items"
	case StepReview:
		return "Review"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// FieldError is one failed field check.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every failed check of a step.
type ValidationError struct {
	Step   Step
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", strings.ToLower(e.Step.String()), strings.Join(parts, "; "))
}

// Messages returns the field errors as display lines.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Field+": "+f.Message)
	}
	return out
}

// Has reports whether field failed.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type checker struct {
	step   Step
	fields []FieldError
}

func (c *checker) fail(field, format string, args ...any) {
	c.fields = append(c.fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &ValidationError{Step: c.step, Fields: c.fields}
}

// ValidateStep checks the fields a step owns. The review step checks
// the whole document.
func (d *Document) ValidateStep(step Step) error {
	c := &checker{step: step}
	switch step {
	case StepDetails:
		d.checkDetails(c)
	case StepItems:
		d.checkItems(c)
	case StepReview:
		d.checkDetails(c)
		d.checkItems(c)
	}
	return c.err()
}

// Validate checks the whole document.
func (d *Document) Validate() error {
	return d.ValidateStep(StepReview)
}

func (d *Document) checkDetails(c *checker) {
	switch d.Kind {
	case KindInvoice, KindQuote:
	default:
		c.fail("kind", "must be invoice or quote")
	}
	if strings.TrimSpace(d.ClientID) == "" {
		c.fail("client", "is required")
	}
	if len(d.Currency) != 3 {
		c.fail("currency", "must be a 3-letter code")
	}

	var issue, due time.Time
	var err error
	if d.IssueDate != "" {
		if issue, err = time.Parse(DateLayout, d.IssueDate); err != nil {
			c.fail("issue_date", "must be YYYY-MM-DD")
		}
	}
	if d.DueDate == "" {
		if d.Kind == KindInvoice {
			c.fail("due_date", "is required for invoices")
		}
		return
	}
	if due, err = time.Parse(DateLayout, d.DueDate); err != nil {
		c.fail("due_date", "must be YYYY-MM-DD")
		return
	}
	if !issue.IsZero() && due.Before(issue) {
		c.fail("due_date", "must not be before the issue date")
	}
}

func (d *Document) checkItems(c *checker) {
	if len(d.Items) == 0 {
		c.fail("items", "add at least one line item")
		return
	}
	for i, li := range d.Items {
		field := fmt.Sprintf("items[%d]", i+1)
		if strings.TrimSpace(li.Description) == "" {
			c.fail(field, "description is required")
		}
		if li.Quantity <= 0 {
			c.fail(field, "quantity must be positive")
		}
		if li.UnitPrice < 0 {
			c.fail(field, "unit price must not be negative")
		}
		if li.TaxRate < 0 || li.TaxRate > 100 {
			c.fail(field, "tax rate must be between 0 and 100")
		}
	}
}
