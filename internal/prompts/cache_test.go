package prompts

import (
	"testing"
	"time"
)

func TestActiveCache(t *testing.T) {
	now := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	c := newActiveCache(time.Minute)
	c.now = func() time.Time { return now }

	if _, ok := c.get(StageSegment); ok {
		t.Fatal("empty cache should miss")
	}

	c.put(StageSegment, nil)
	if p, ok := c.get(StageSegment); !ok || p != nil {
		t.Errorf("cached absence: got %v, %v", p, ok)
	}

	override := &Prompt{Name: "terse", Stage: StageSummarize, Active: true}
	c.put(StageSummarize, override)
	if p, ok := c.get(StageSummarize); !ok || p != override {
		t.Errorf("cached override: got %v, %v", p, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.get(StageSummarize); ok {
		t.Error("expired entry should miss")
	}

	c.put(StageSummarize, override)
	c.clear()
	if _, ok := c.get(StageSummarize); ok {
		t.Error("cleared entry should miss")
	}
}
