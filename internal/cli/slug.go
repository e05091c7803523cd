package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/identifier"
)

// newSlugCommand prints the base identifier a title would get, before any
// uniqueness suffix.
func newSlugCommand() *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "slug <title>...",
		Short: "Print the identifier base derived from a title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, ok := identifier.Lookup(collection)
			if !ok {
				return fmt.Errorf("unknown collection %q", collection)
			}
			base := coll.Base(strings.Join(args, " "))
			if base == "" {
				return identifier.ErrEmptyCandidate
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), base)
			return err
		},
	}
	cmd.Flags().StringVar(&collection, "collection", identifier.Posts.Name, "collection the identifier belongs to")
	return cmd
}
