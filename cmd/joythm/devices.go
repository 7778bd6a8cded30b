package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/joythm/internal/discovery"
	"github.com/ayusman/joythm/internal/joycon"
)

// searchControllers overrides the HID search in tests.
var searchControllers func() ([]joycon.HIDInfo, error)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Run one discovery poll and list the Joy-Cons found",
		RunE: func(cmd *cobra.Command, args []string) error {
			transport := joycon.New(joycon.Config{Search: searchControllers})
			ids, err := transport.Discover()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No Joy-Cons found")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintf(out, "%s\t%s\t%s\n", id.Hand, id.Serial, id.Handle)
			}
			if discovery.HasPair(ids) {
				fmt.Fprintln(out, "Pair complete")
			} else {
				fmt.Fprintln(out, "Pair incomplete: need one Left and one Right")
			}
			return nil
		},
	}
}
