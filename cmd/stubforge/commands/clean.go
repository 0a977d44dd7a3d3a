package commands

import (
	"fmt"

	"git.home.luguber.info/inful/stubforge/internal/config"
	"git.home.luguber.info/inful/stubforge/internal/orchestrator"
)

// CleanCmd implements the 'clean' command. It removes everything beneath the
// stubs directory except the project-local override staging tree, so the next
// build starts from scratch.
type CleanCmd struct{}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	orch := orchestrator.New(orchestrator.Options{Config: cfg})
	if err := orch.Clean(); err != nil {
		return err
	}
	fmt.Printf("Cleaned %s\n", cfg.StubsDir)
	return nil
}
