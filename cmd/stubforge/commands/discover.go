package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"git.home.luguber.info/inful/stubforge/internal/registry"
)

// DiscoverCmd implements the 'discover' command: show what a build would
// target, with resolved versions, without generating anything.
type DiscoverCmd struct{}

func (d *DiscoverCmd) Run(_ *Global, root *CLI) error {
	rt, err := loadRuntime(root)
	if err != nil {
		return err
	}

	specs := registry.Resolve(rt.cfg, rt.versions)
	if len(specs) == 0 {
		fmt.Println("No build targets resolved")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tPACKAGE\tVERSION\tSOURCE")
	for _, spec := range specs {
		version := "(unresolvable)"
		if spec.Skip {
			version = "(skipped)"
		} else if v, err := spec.TargetVersion(rt.versions); err == nil {
			version = v
		}
		source := "configured"
		if spec.Discovered {
			source = "discovered"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", spec.Name, spec.PackageName, version, source)
	}
	return w.Flush()
}
