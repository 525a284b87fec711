package host

import (
	"context"
	"errors"
	"time"
)

var ErrDialogNotFound = errors.New("dialog not found")

// Prompt is one confirmation request addressed to the user of origin.
type Prompt struct {
	Origin  string
	Title   string
	Content Content
}

// Dialog shows a prompt and blocks until the user decides. A dismissed or
// timed-out dialog counts as a rejection, never as an error.
type Dialog interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// DialogFunc adapts a function to Dialog.
type DialogFunc func(ctx context.Context, p Prompt) (bool, error)

func (f DialogFunc) Confirm(ctx context.Context, p Prompt) (bool, error) { return f(ctx, p) }

// AutoApprove and AutoReject answer every prompt without a user. They back
// scripted development setups and tests.
var (
	AutoApprove = DialogFunc(func(context.Context, Prompt) (bool, error) { return true, nil })
	AutoReject  = DialogFunc(func(context.Context, Prompt) (bool, error) { return false, nil })
)

// Pending is a prompt waiting for a decision, as exposed to the host UI.
type Pending struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	Title     string    `json:"title"`
	Content   Content   `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
