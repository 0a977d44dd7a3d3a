package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/stubforge/internal/orchestrator"
)

// BuildCmd implements the 'build' command: one incremental pass over every
// resolved module.
type BuildCmd struct{}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	rt, err := loadRuntime(root)
	if err != nil {
		return err
	}
	rt.openJournal()
	defer rt.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch := orchestrator.New(orchestrator.Options{
		Config:           rt.cfg,
		Versions:         rt.versions,
		Store:            rt.store,
		Invoker:          rt.tools,
		Units:            rt.tools,
		Tools:            rt.tools,
		UserOverrideRoot: rt.userRoot,
		Journal:          rt.journal,
		Logger:           rt.logger,
	})
	return orch.Run(ctx)
}
