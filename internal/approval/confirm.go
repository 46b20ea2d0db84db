package approval

import "context"

// VetoPrompt is shown before a node is skipped.
const VetoPrompt = "Veto: the agent will abandon this branch and try a different path. Continue?"

// Confirmer asks the user to acknowledge an irreversible action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm acknowledges every prompt. The CLI uses it for --yes.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) {
	return true, nil
})

// NeverConfirm declines every prompt.
var NeverConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) {
	return false, nil
})
