package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ninex.world/internal/persistence/snapshot"
	"ninex.world/internal/sim/efe"
	"ninex.world/internal/sim/world"
)

var (
	inspectX int
	inspectY int
)

func runInspect(cmd *cobra.Command, args []string) error {
	snap, err := snapshot.ReadSnapshot(args[0])
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "snapshot v%d world=%s tick=%d seed=%d grid=%dx%d genome_address_size=%d history=%d behavior=%s organisms=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Seed, snap.Width, snap.Height,
		snap.GenomeAddressSize, snap.BitHistorySize, snap.Behavior, len(snap.Organisms))

	w, err := world.New(world.ConfigFromSnapshot(snap), logger)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.ImportSnapshot(snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	fmt.Fprintf(out, "digest=%s\n", w.Digest())

	if inspectX < 0 || inspectY < 0 {
		return nil
	}
	return describeOrganism(out, w, inspectX, inspectY)
}

func describeOrganism(out io.Writer, w *world.World, x, y int) error {
	o := w.Organism(x, y)
	if o == nil {
		return fmt.Errorf("no organism at (%d,%d)", x, y)
	}
	d := w.Decoder()
	g := o.Genome()
	disp := w.Display(x, y)
	mv := d.Move(g)
	mt := d.Meet(g)
	hb := d.HistoryBit(g)

	fmt.Fprintf(out, "organism (%d,%d) iterations=%d genome_bits=%d\n", x, y, o.Iterations(), g.Len())
	fmt.Fprintf(out, "  display     r=%d g=%d b=%d\n", disp.Red, disp.Green, disp.Blue)
	fmt.Fprintf(out, "  move        a=%d b=%d\n", mv.AddressA, mv.AddressB)
	fmt.Fprintf(out, "  meet        a=%d b=%d size=%d\n", mt.AddressA, mt.AddressB, mt.Size)
	fmt.Fprintf(out, "  history_bit address=%d\n", hb.Address)
	fmt.Fprintf(out, "  history     %s (uint=%d)\n", bitString(o.History().Slice()), o.History().Uint())
	fmt.Fprintf(out, "  efe(history)=%d\n", o.ExpressHistory(w.Engine()))
	fmt.Fprintf(out, "  efe(0..7)   ")
	for v := uint64(0); v < efe.Width; v++ {
		fmt.Fprintf(out, "%d", o.Express(w.Engine(), efe.BitsFromUint(v)))
	}
	fmt.Fprintln(out)
	return nil
}

func bitString(bits []uint8) string {
	b := make([]byte, len(bits))
	for i, v := range bits {
		b[i] = '0' + v
	}
	return string(b)
}
