package view

import (
	"context"
	"errors"
	"fmt"
)

// Action names as they appear in routes and forms.
const (
	ActionEditProfile      = "edit-profile"
	ActionEditAbout        = "edit-about"
	ActionAddCollaboration = "add-collaboration"
	ActionAddProduct       = "add-product"
	ActionEditProduct      = "edit-product"
	ActionBookProduct      = "book-product"
	ActionEditTestimonials = "edit-testimonials"
	ActionAddTestimonial   = "add-testimonial"
)

var (
	// ErrUnknownAction is returned by Dispatch for a name outside the action set.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidTarget is returned when a product action names a row the
	// view does not show.
	ErrInvalidTarget = errors.New("action target not available")
)

// Actions is the interaction seam behind the page's edit, add and booking
// affordances.
type Actions interface {
	EditProfile(ctx context.Context) error
	EditAbout(ctx context.Context) error
	AddCollaboration(ctx context.Context) error
	AddProduct(ctx context.Context) error
	EditProduct(ctx context.Context, index int) error
	BookProduct(ctx context.Context, index int, note string) error
	EditTestimonials(ctx context.Context) error
	AddTestimonial(ctx context.Context) error
}

// NopActions accepts every action and does nothing.
type NopActions struct{}

func (NopActions) EditProfile(context.Context) error              { return nil }
func (NopActions) EditAbout(context.Context) error                { return nil }
func (NopActions) AddCollaboration(context.Context) error         { return nil }
func (NopActions) AddProduct(context.Context) error               { return nil }
func (NopActions) EditProduct(context.Context, int) error         { return nil }
func (NopActions) BookProduct(context.Context, int, string) error { return nil }
func (NopActions) EditTestimonials(context.Context) error         { return nil }
func (NopActions) AddTestimonial(context.Context) error           { return nil }

// ActionRequest is one activation of an affordance.
type ActionRequest struct {
	Name  string
	Index int    // product row, for edit-product and book-product
	Note  string // free text, for book-product
}

// Dispatch routes req to actions. Product actions are only accepted for rows
// the current snapshot actually shows.
func (v *View) Dispatch(ctx context.Context, actions Actions, req ActionRequest) error {
	if v.Closed() {
		return ErrClosed
	}

	switch req.Name {
	case ActionEditProfile:
		return actions.EditProfile(ctx)
	case ActionEditAbout:
		return actions.EditAbout(ctx)
	case ActionAddCollaboration:
		return actions.AddCollaboration(ctx)
	case ActionAddProduct:
		return actions.AddProduct(ctx)
	case ActionEditTestimonials:
		return actions.EditTestimonials(ctx)
	case ActionAddTestimonial:
		return actions.AddTestimonial(ctx)
	case ActionEditProduct, ActionBookProduct:
		snap := v.Snapshot()
		if snap.Profile == nil || req.Index < 0 || req.Index >= len(snap.Profile.Products) {
			return fmt.Errorf("%w: product %d", ErrInvalidTarget, req.Index)
		}
		if req.Name == ActionEditProduct {
			return actions.EditProduct(ctx, req.Index)
		}
		return actions.BookProduct(ctx, req.Index, req.Note)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, req.Name)
	}
}
