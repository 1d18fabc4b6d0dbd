package extract

import (
	"strings"
	"testing"
)

func TestSplitInstructionBlockDiscardsPreamble(t *testing.T) {
	block := "500g beef mince 2 onions 1 tin tomatoes Method: Heat the oil in a large pan over a medium flame until shimmering. Add the onions and fry gently for ten minutes. Stir in the mince and brown it all over before adding the tomatoes."

	steps := SplitInstructionBlock(block)

	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3: %q", len(steps), steps)
	}
	if strings.Contains(steps[0], "beef mince") {
		t.Errorf("ingredients preamble leaked into first step: %q", steps[0])
	}
	if !strings.HasPrefix(steps[0], "Heat the oil") {
		t.Errorf("first step = %q", steps[0])
	}
	if !strings.HasPrefix(steps[1], "Add the onions") {
		t.Errorf("second step = %q", steps[1])
	}
	if !strings.HasPrefix(steps[2], "Stir in the mince") {
		t.Errorf("third step = %q", steps[2])
	}
}

func TestSplitInstructionBlockGroupsNonVerbSentences(t *testing.T) {
	block := "Heat the oven to 180C and butter the tin generously. The mixture will look curdled at this stage. This is normal and resolves in the oven. Bake for forty minutes until golden brown on top."

	steps := SplitInstructionBlock(block)

	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2: %q", len(steps), steps)
	}
	// Non-verb sentences stay attached to the step they describe.
	if !strings.Contains(steps[0], "look curdled") || !strings.Contains(steps[0], "This is normal") {
		t.Errorf("explanatory sentences not grouped with first step: %q", steps[0])
	}
	if !strings.HasPrefix(steps[1], "Bake for forty minutes") {
		t.Errorf("second step = %q", steps[1])
	}
}

func TestSplitInstructionBlockStripsFiller(t *testing.T) {
	block := "Mix the flour and water into a smooth batter without lumps. Subscribe to our weekly newsletter for more ideas. Fry spoonfuls of the batter until golden on both sides. All rights reserved 2023."

	steps := SplitInstructionBlock(block)

	for _, step := range steps {
		if strings.Contains(strings.ToLower(step), "subscribe") {
			t.Errorf("filler survived the split: %q", step)
		}
		if strings.Contains(strings.ToLower(step), "rights reserved") {
			t.Errorf("legal boilerplate survived the split: %q", step)
		}
	}
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2: %q", len(steps), steps)
	}
}

func TestSplitInstructionBlockDropsShortFragments(t *testing.T) {
	block := "Chop finely. Heat the oil in a heavy pan and fry the garlic until it smells sweet but has not coloured."

	steps := SplitInstructionBlock(block)

	if len(steps) != 1 {
		t.Fatalf("got %d steps, want 1: %q", len(steps), steps)
	}
	if !strings.HasPrefix(steps[0], "Heat the oil") {
		t.Errorf("step = %q", steps[0])
	}
}

func TestSplitInstructionBlockEmptyInput(t *testing.T) {
	if steps := SplitInstructionBlock("   "); steps != nil {
		t.Errorf("got %q, want nil", steps)
	}
}
