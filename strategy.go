package tether

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/akmonengine/tether/actor"
	"github.com/akmonengine/tether/config"
	"github.com/akmonengine/tether/constraint"
)

// Mode selects a collision response strategy.
type Mode int

const (
	// ModeDirect integrates everything, then pushes colliding bodies apart.
	ModeDirect Mode = iota
	// ModePoseFirst moves the bodies each spring source touches and undoes
	// the move when a response push cannot clear the collision.
	ModePoseFirst
	// ModeBinaryBackoff halves the forces of a spring source until its move
	// is collision free.
	ModeBinaryBackoff
	// ModePosePCA is ModePoseFirst with a contact-plane response.
	ModePosePCA
)

var ErrInvalidMode = errors.New("invalid strategy mode")

var modeNames = [...]string{"direct", "pose-first", "binary-backoff", "pose-pca"}

func (m Mode) Valid() bool {
	return m >= 0 && int(m) < len(modeNames)
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(name string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(name, n) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, name)
}

// StepInput is everything a strategy needs for one frame.
type StepInput struct {
	// HandA and HandB are the connections held by each hand. HandB is
	// processed first.
	HandA, HandB []constraint.Connection
	General      []constraint.Connection
	ApplyGeneral bool

	// Bodies are the top-level nodes of the world.
	Bodies         []*actor.Node
	Dt             float64
	CollisionCheck bool

	// Grid is an optional broad phase for the top-level collision pass.
	Grid *SpatialGrid
}

// sources returns the connection lists in processing order.
func (in StepInput) sources() [][]constraint.Connection {
	sources := [][]constraint.Connection{in.HandB, in.HandA}
	if in.ApplyGeneral {
		sources = append(sources, in.General)
	}
	return sources
}

// StepReport summarizes what a strategy did during one step.
type StepReport struct {
	// SourcesApplied counts the spring sources that produced a force.
	SourcesApplied int
	// SourcesRolledBack counts the pose moves that were undone.
	SourcesRolledBack int
	// BackoffIterations counts force halvings.
	BackoffIterations int
	// BackoffCapReached is set when a source was accepted while still colliding.
	BackoffCapReached bool
}

func (r *StepReport) add(other StepReport) {
	r.SourcesApplied += other.SourcesApplied
	r.SourcesRolledBack += other.SourcesRolledBack
	r.BackoffIterations += other.BackoffIterations
	r.BackoffCapReached = r.BackoffCapReached || other.BackoffCapReached
}

// Strategy advances the bodies for one frame. A strategy holds no state that
// changes during a step: the touched collision groups travel with each
// response call.
type Strategy interface {
	Mode() Mode
	PerformStep(in StepInput) StepReport
	RespondToCollision(a, b *actor.Node, contacts []actor.ContactPair, mode actor.ContactMode, touched *GroupSet)
}

// boundResponder hands the touched groups of the current source to a strategy.
type boundResponder struct {
	strategy Strategy
	touched  *GroupSet
}

func (r boundResponder) RespondToCollision(a, b *actor.Node, contacts []actor.ContactPair, mode actor.ContactMode) {
	r.strategy.RespondToCollision(a, b, contacts, mode, r.touched)
}

// NewStrategy builds the strategy for mode. A nil logger uses log.Default().
func NewStrategy(mode Mode, settings config.Settings, logger *log.Logger) (Strategy, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := stepper{settings: settings}

	switch mode {
	case ModeDirect:
		return &directStrategy{stepper: s}, nil
	case ModePoseFirst:
		return &poseStrategy{stepper: s, mode: mode, respond: func(a, b *actor.Node, contacts []actor.ContactPair, touched *GroupSet) {
			applyNormalResponse(a, b, contacts, touched, settings.CollisionForce)
		}}, nil
	case ModePosePCA:
		return &poseStrategy{stepper: s, mode: mode, respond: func(a, b *actor.Node, contacts []actor.ContactPair, touched *GroupSet) {
			applyAxisResponse(a, b, contacts, touched, settings.CollisionForce, logger)
		}}, nil
	case ModeBinaryBackoff:
		return &backoffStrategy{stepper: s}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
}

// ============================================================================
// Direct
// ============================================================================

type directStrategy struct {
	stepper
}

func (s *directStrategy) Mode() Mode { return ModeDirect }

func (s *directStrategy) PerformStep(in StepInput) StepReport {
	var report StepReport
	var touched GroupSet
	var groups NodeSet

	for _, source := range in.sources() {
		if springForcesFromList(source, &touched, &groups) {
			report.SourcesApplied++
		}
	}
	s.integrateListAndGroups(in.Bodies, &groups, in.Dt, true)

	if in.CollisionCheck {
		// Every collision is answered, whatever the springs touched.
		var everyone GroupSet
		responder := boundResponder{strategy: s, touched: &everyone}
		collideAndRespond(in.Bodies, &everyone, actor.AllContacts, responder, in.Grid)
		collideWithinGroups(&groups, &everyone, actor.AllContacts, responder)
		s.integrateListAndGroups(in.Bodies, &groups, in.Dt, true)
	}
	return report
}

func (s *directStrategy) RespondToCollision(a, b *actor.Node, contacts []actor.ContactPair, _ actor.ContactMode, touched *GroupSet) {
	applyNormalResponse(a, b, contacts, touched, s.settings.CollisionForce)
}

// ============================================================================
// Pose first
// ============================================================================

// poseStrategy implements both pose modes. They only differ by the force
// model answering collisions.
type poseStrategy struct {
	stepper
	mode    Mode
	respond func(a, b *actor.Node, contacts []actor.ContactPair, touched *GroupSet)
}

func (s *poseStrategy) Mode() Mode { return s.mode }

func (s *poseStrategy) PerformStep(in StepInput) StepReport {
	var report StepReport
	for _, source := range in.sources() {
		report.add(s.poseForSprings(source, in))
	}
	return report
}

func (s *poseStrategy) poseForSprings(springs []constraint.Connection, in StepInput) StepReport {
	var report StepReport
	if len(springs) == 0 {
		return report
	}

	var touched GroupSet
	var groups NodeSet
	if !springForcesFromList(springs, &touched, &groups) {
		return report
	}
	report.SourcesApplied++

	setLastLocation(in.Bodies, &groups)
	s.integrateListAndGroups(in.Bodies, &groups, in.Dt, true)
	if !in.CollisionCheck {
		return report
	}

	responder := boundResponder{strategy: s, touched: &touched}
	hitTop := collideAndRespond(in.Bodies, &touched, actor.AllContacts, responder, in.Grid)
	hitGroups := collideWithinGroups(&groups, &touched, actor.AllContacts, responder)
	s.integrateListAndGroups(in.Bodies, &groups, in.Dt, true)

	if hitTop || hitGroups {
		stillColliding := collideAndRespond(in.Bodies, &touched, actor.FirstContact, responder, in.Grid) ||
			collideWithinGroups(&groups, &touched, actor.FirstContact, responder)
		if stillColliding {
			restoreToLastLocation(in.Bodies, &groups)
			report.SourcesRolledBack++
		}
	}
	return report
}

// RespondToCollision only reacts to full contact lists. Early exit passes are
// pure tests.
func (s *poseStrategy) RespondToCollision(a, b *actor.Node, contacts []actor.ContactPair, mode actor.ContactMode, touched *GroupSet) {
	if mode != actor.AllContacts {
		return
	}
	s.respond(a, b, contacts, touched)
}

// ============================================================================
// Binary backoff
// ============================================================================

type backoffStrategy struct {
	stepper
}

func (s *backoffStrategy) Mode() Mode { return ModeBinaryBackoff }

func (s *backoffStrategy) PerformStep(in StepInput) StepReport {
	var report StepReport
	for _, source := range in.sources() {
		report.add(s.backoffForSprings(source, in))
	}
	return report
}

func (s *backoffStrategy) backoffForSprings(springs []constraint.Connection, in StepInput) StepReport {
	var report StepReport
	if len(springs) == 0 {
		return report
	}

	var touched GroupSet
	var groups NodeSet
	if springForcesFromList(springs, &touched, &groups) {
		report.SourcesApplied++
	}

	setLastLocation(in.Bodies, &groups)
	s.integrateListAndGroups(in.Bodies, &groups, in.Dt, false)

	if in.CollisionCheck {
		responder := boundResponder{strategy: s, touched: &touched}
		colliding := func() bool {
			return collideAndRespond(in.Bodies, &touched, actor.FirstContact, responder, in.Grid) ||
				collideWithinGroups(&groups, &touched, actor.FirstContact, responder)
		}

		for tries := 1; colliding(); tries++ {
			if tries >= s.settings.BackoffIterations {
				report.BackoffCapReached = true
				break
			}
			restoreToLastLocation(in.Bodies, &groups)
			divideForces(in.Bodies, &groups, 2)
			s.integrateListAndGroups(in.Bodies, &groups, in.Dt, false)
			report.BackoffIterations++
		}
	}

	clearForces(in.Bodies, &groups)
	return report
}

// RespondToCollision does nothing: backing off is the response.
func (s *backoffStrategy) RespondToCollision(*actor.Node, *actor.Node, []actor.ContactPair, actor.ContactMode, *GroupSet) {
}
