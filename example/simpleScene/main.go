package main

import (
	"fmt"
	"log"

	"github.com/akmonengine/tether"
	"github.com/akmonengine/tether/actor"
	"github.com/akmonengine/tether/config"
	"github.com/akmonengine/tether/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// SetupScene places two spheres on the x axis and a tracker spring pulling
// the first one into the second.
func SetupScene(settings config.Settings) (*tether.World, *actor.Node, *actor.Node, *constraint.Spring) {
	world, err := tether.NewWorld(settings)
	if err != nil {
		log.Fatal(err)
	}

	inverseMass, inverseMoment := actor.SphereMassProperties(1, 0.25)
	if err := world.Models.Register(actor.NewModel("sphere", inverseMass, inverseMoment, actor.NewSphereMesh(1, 8, 12))); err != nil {
		log.Fatal(err)
	}

	grabbed, err := world.AddLeaf("sphere", 0, mgl64.Vec3{-3, 0, 0}, mgl64.QuatIdent())
	if err != nil {
		log.Fatal(err)
	}
	obstacle, err := world.AddLeaf("sphere", 0, mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent())
	if err != nil {
		log.Fatal(err)
	}

	// The hand is a fixed world point on the far side of the obstacle.
	hand := constraint.NewSpring(nil, grabbed, mgl64.Vec3{3, 0, 0}, mgl64.Vec3{}, 2, 0, 0)
	if err := world.AddHandSpring(0, hand); err != nil {
		log.Fatal(err)
	}

	return world, grabbed, obstacle, hand
}

// RunScene drags the first sphere towards the hand and prints what the
// strategy made of it.
func RunScene(mode tether.Mode) {
	fmt.Printf("=== %s ===\n", mode)

	settings, err := config.Load("tether.yaml")
	if err != nil {
		log.Fatal(err)
	}
	settings.Mode = int(mode)

	world, grabbed, obstacle, hand := SetupScene(settings)

	const dt float64 = 1.0 / 60.0
	const maxSteps int = 120

	for step := 0; step < maxSteps; step++ {
		report, err := world.Step(dt)
		if err != nil {
			log.Fatal(err)
		}
		if step%20 == 0 || report.SourcesRolledBack > 0 || report.BackoffCapReached {
			fmt.Printf("step %3d  grabbed %v  obstacle %v  spring %.3f  report %+v\n",
				step+1, grabbed.Position(), obstacle.Position(), hand.Length(), report)
		}
	}

	fmt.Printf("final: grabbed %v obstacle %v stats %+v\n\n", grabbed.Position(), obstacle.Position(), world.Stats)
}

func main() {
	for _, mode := range []tether.Mode{tether.ModeDirect, tether.ModePoseFirst, tether.ModeBinaryBackoff, tether.ModePosePCA} {
		RunScene(mode)
	}
}
