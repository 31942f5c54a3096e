// Package catalog holds the workflow definitions ThreadCraft registers at start-up.
package catalog

import (
	"time"

	"threadcraft/internal/domain"
)

const (
	OrderLifecycle = "order_lifecycle"
	DesignApproval = "design_approval"
	ProductionRun  = "production_run"
)

const day = 24 * time.Hour

// Definitions returns fresh copies of every built-in definition.
func Definitions() []domain.Definition {
	return []domain.Definition{
		orderLifecycle(),
		designApproval(),
		productionRun(),
	}
}

// Register adds every built-in definition to r.
func Register(r interface {
	RegisterDefinition(domain.Definition) error
}) error {
	for _, def := range Definitions() {
		if err := r.RegisterDefinition(def); err != nil {
			return err
		}
	}
	return nil
}

// orderLifecycle follows a customer order from quote to delivery.
func orderLifecycle() domain.Definition {
	return domain.Definition{
		Name:  OrderLifecycle,
		Start: "pending",
		Steps: map[domain.StepID]domain.Step{
			"pending":            {DisplayName: "Pending", Next: []domain.StepID{"design_requested", "payment_pending", "cancelled"}},
			"design_requested":   {DisplayName: "Design Requested", Next: []domain.StepID{"design_in_progress", "cancelled"}},
			"design_in_progress": {DisplayName: "Design In Progress", Next: []domain.StepID{"design_review", "cancelled"}},
			"design_review":      {DisplayName: "Design Review", Next: []domain.StepID{"design_in_progress", "design_approved", "cancelled"}},
			"design_approved":    {DisplayName: "Design Approved", Next: []domain.StepID{"payment_pending"}},
			"payment_pending":    {DisplayName: "Payment Pending", Next: []domain.StepID{"payment_received", "cancelled"}},
			"payment_received":   {DisplayName: "Payment Received", Next: []domain.StepID{"in_production"}},
			"in_production":      {DisplayName: "In Production", Next: []domain.StepID{"quality_check"}},
			"quality_check":      {DisplayName: "Quality Check", Next: []domain.StepID{"in_production", "shipped"}},
			"shipped":            {DisplayName: "Shipped", Next: []domain.StepID{"delivered"}},
			"delivered":          {DisplayName: "Delivered", Terminal: true},
			"cancelled":          {DisplayName: "Cancelled", Terminal: true, Failure: true},
		},
		CanonicalOrder: []domain.StepID{
			"pending", "design_requested", "design_in_progress", "design_review", "design_approved",
			"payment_pending", "payment_received", "in_production", "quality_check", "shipped", "delivered",
		},
		ExpectedCompletion: 14 * day,
	}
}

// designApproval tracks artwork between the designer and the customer. Review may loop
// on itself when the customer asks for another look without requesting changes.
func designApproval() domain.Definition {
	return domain.Definition{
		Name:  DesignApproval,
		Start: "submitted",
		Steps: map[domain.StepID]domain.Step{
			"submitted":          {DisplayName: "Submitted", Next: []domain.StepID{"in_progress", "rejected"}},
			"in_progress":        {DisplayName: "In Progress", Next: []domain.StepID{"review"}},
			"review":             {DisplayName: "Customer Review", Next: []domain.StepID{"review", "revision_requested", "approved", "rejected"}},
			"revision_requested": {DisplayName: "Revision Requested", Next: []domain.StepID{"in_progress", "rejected"}},
			"approved":           {DisplayName: "Approved", Terminal: true},
			"rejected":           {DisplayName: "Rejected", Terminal: true, Failure: true},
		},
		CanonicalOrder:     []domain.StepID{"submitted", "in_progress", "review", "revision_requested", "approved"},
		ExpectedCompletion: 5 * day,
	}
}

// productionRun covers the manufacturer's floor work for one order.
func productionRun() domain.Definition {
	return domain.Definition{
		Name:  ProductionRun,
		Start: "queued",
		Steps: map[domain.StepID]domain.Step{
			"queued":        {DisplayName: "Queued", Next: []domain.StepID{"cutting", "on_hold", "cancelled"}},
			"on_hold":       {DisplayName: "On Hold", Next: []domain.StepID{"on_hold", "queued", "cancelled"}},
			"cutting":       {DisplayName: "Cutting", Next: []domain.StepID{"printing", "on_hold"}},
			"printing":      {DisplayName: "Printing", Next: []domain.StepID{"sewing", "on_hold"}},
			"sewing":        {DisplayName: "Sewing", Next: []domain.StepID{"quality_check", "on_hold"}},
			"quality_check": {DisplayName: "Quality Check", Next: []domain.StepID{"printing", "sewing", "packaging"}},
			"packaging":     {DisplayName: "Packaging", Next: []domain.StepID{"completed"}},
			"completed":     {DisplayName: "Completed", Terminal: true},
			"cancelled":     {DisplayName: "Cancelled", Terminal: true, Failure: true},
		},
		CanonicalOrder:     []domain.StepID{"queued", "cutting", "printing", "sewing", "quality_check", "packaging", "completed"},
		ExpectedCompletion: 7 * day,
	}
}
