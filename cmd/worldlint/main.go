// Package main is the world-file validator: it loads a zone directory the
// way engined does and reports what it found, failing on any content error.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/driftwood-mud/engine/internal/game/world"
)

func main() {
	dir := flag.String("dir", "world", "path to zone YAML directory")
	startRoom := flag.String("start-room", "", "optional start room override, as zone:local")
	flag.Parse()

	start := time.Now()
	zones, err := world.LoadZonesFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	w, err := world.Assemble(zones, *startRoom)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var rooms, items, mobs, dialogues, scripted int
	for _, z := range w.Zones() {
		rooms += len(z.Rooms)
		items += len(z.ItemTemplates)
		mobs += len(z.MobTemplates)
		dialogues += len(z.Dialogues)
		if z.ScriptFile != "" {
			scripted++
		}
		fmt.Printf("zone %-16s %3d rooms  %3d items  %3d mobs  %2d shops\n",
			z.ID, len(z.Rooms), len(z.ItemTemplates), len(z.MobTemplates), len(z.Shops))
	}

	fmt.Printf("ok: %d zones, %d rooms, %d items, %d mobs, %d dialogues, %d shops, %d scripted zones, start %s [%s]\n",
		len(w.Zones()), rooms, items, mobs, dialogues, len(w.Shops()), scripted,
		w.StartRoom, time.Since(start).Round(time.Millisecond))
}
