package cmd

import (
	"bytes"
	"context"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/mock"

	"sunset.dev/pkg/sunset/internal/domain"
	m "sunset.dev/pkg/sunset/internal/model"
)

// mockWorkflow stands in for the domain workflow in command tests.
type mockWorkflow struct {
	mock.Mock
}

func (w *mockWorkflow) Run(ctx context.Context, args domain.Args) (m.RunReport, error) {
	called := w.Called(ctx, args)
	return called.Get(0).(m.RunReport), called.Error(1)
}

func (w *mockWorkflow) Plan(ctx context.Context, args domain.Args) (m.RunReport, error) {
	called := w.Called(ctx, args)
	return called.Get(0).(m.RunReport), called.Error(1)
}

func (w *mockWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	return w.Called(ctx, args).Error(0)
}

// swapWorkflow installs a mock for the duration of one test.
func swapWorkflow(mocked domain.Workflow) func() {
	original := workflow
	workflow = mocked
	return func() { workflow = original }
}

// newTestRoot builds a fresh root command with the given subcommands and
// silenced output streams.
func newTestRoot(sub ...*cobra.Command) *cobra.Command {
	cmd := newRootCmd()
	configureRootFlags(cmd)
	for _, s := range sub {
		cmd.AddCommand(s)
	}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}
