package adjudication

import (
	"testing"

	"github.com/google/uuid"

	"tournament-engine/internal/draw"
	"tournament-engine/internal/entities"
)

func makeAdjudicator(chairSkill, panelSkill int) *entities.Participant {
	return &entities.Participant{
		UUID:     uuid.New(),
		RoleKind: entities.RoleAdjudicator,
		Adjudicator: &entities.AdjudicatorRole{
			ChairSkill: chairSkill,
			PanelSkill: panelSkill,
		},
	}
}

func TestAssignChairsFillsEveryDebate(t *testing.T) {
	round := uuid.New()
	a1 := makeAdjudicator(80, 50)
	a2 := makeAdjudicator(50, 50)
	a3 := makeAdjudicator(20, 50)

	debates := []*DebateInfo{
		{RoundID: round, DebateIdx: 0, Government: uuid.New(), Opposition: uuid.New()},
		{RoundID: round, DebateIdx: 1, Government: uuid.New(), Opposition: uuid.New()},
	}
	rounds := []RoundInfo{{ID: round, Debates: debates}}

	evaluator := draw.NewEvaluator(draw.DefaultEvaluatorConfig(), nil)
	state := NewAssignmentState(DefaultOptimizationOptions(), rounds, []*entities.Participant{a1, a2, a3}, evaluator)
	state.AssignChairs()

	for _, d := range debates {
		if d.Chair == nil {
			t.Fatalf("expected debate %d to receive a chair", d.DebateIdx)
		}
	}
	if *debates[0].Chair == *debates[1].Chair {
		t.Errorf("expected distinct chairs across the two debates in the same round, got the same adjudicator twice")
	}
}

func TestAssignChairsSkipsUnavailableAdjudicator(t *testing.T) {
	round := uuid.New()
	available := makeAdjudicator(50, 50)
	unavailable := makeAdjudicator(90, 90)
	unavailable.Adjudicator.UnavailableRounds = []uuid.UUID{round}

	debates := []*DebateInfo{
		{RoundID: round, DebateIdx: 0, Government: uuid.New(), Opposition: uuid.New()},
	}
	rounds := []RoundInfo{{ID: round, Debates: debates}}

	evaluator := draw.NewEvaluator(draw.DefaultEvaluatorConfig(), nil)
	state := NewAssignmentState(DefaultOptimizationOptions(), rounds, []*entities.Participant{available, unavailable}, evaluator)
	state.AssignChairs()

	if debates[0].Chair == nil {
		t.Fatalf("expected the debate to receive a chair")
	}
	if *debates[0].Chair != available.UUID {
		t.Errorf("expected the available adjudicator to be chosen over the unavailable one")
	}
}

func TestAssignChairsRespectsHardClash(t *testing.T) {
	round := uuid.New()
	gov := uuid.New()
	clashing := makeAdjudicator(90, 90)
	clean := makeAdjudicator(10, 10)

	clash := &entities.ParticipantClash{
		UUID:                   uuid.New(),
		DeclaringParticipantID: clashing.UUID,
		TargetParticipantID:    gov,
		ClashSeverity:          100,
	}

	debates := []*DebateInfo{
		{RoundID: round, DebateIdx: 0, Government: gov, Opposition: uuid.New(), GovMembers: []uuid.UUID{gov}},
	}
	rounds := []RoundInfo{{ID: round, Debates: debates}}

	evaluator := draw.NewEvaluator(draw.DefaultEvaluatorConfig(), []*entities.ParticipantClash{clash})
	opts := DefaultOptimizationOptions()
	opts.HardClashThreshold = 75
	state := NewAssignmentState(opts, rounds, []*entities.Participant{clashing, clean}, evaluator)
	state.AssignChairs()

	if debates[0].Chair == nil {
		t.Fatalf("expected a chair to be assigned")
	}
	if *debates[0].Chair != clean.UUID {
		t.Errorf("expected the clashing adjudicator to be excluded as inadmissible, got %s assigned", debates[0].Chair)
	}
}

func TestAssignWingsFillsPanelsEvenly(t *testing.T) {
	round := uuid.New()
	chair1, chair2 := uuid.New(), uuid.New()
	wings := []*entities.Participant{
		makeAdjudicator(30, 40),
		makeAdjudicator(30, 50),
		makeAdjudicator(30, 60),
		makeAdjudicator(30, 70),
	}

	debates := []*DebateInfo{
		{RoundID: round, DebateIdx: 0, Chair: &chair1, Government: uuid.New(), Opposition: uuid.New()},
		{RoundID: round, DebateIdx: 1, Chair: &chair2, Government: uuid.New(), Opposition: uuid.New()},
	}
	rounds := []RoundInfo{{ID: round, Debates: debates}}

	evaluator := draw.NewEvaluator(draw.DefaultEvaluatorConfig(), nil)
	state := NewAssignmentState(DefaultOptimizationOptions(), rounds, wings, evaluator)
	state.AssignWings()

	total := len(debates[0].Wings) + len(debates[1].Wings)
	if total != 4 {
		t.Fatalf("expected all 4 wing-eligible adjudicators placed, got %d", total)
	}
	diff := len(debates[0].Wings) - len(debates[1].Wings)
	if diff < -1 || diff > 1 {
		t.Errorf("expected wing panels to be balanced within 1 of each other, got %d and %d", len(debates[0].Wings), len(debates[1].Wings))
	}
}
