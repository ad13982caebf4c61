package domain

import "testing"

func TestNextTransition(t *testing.T) {
	tests := []struct {
		name       string
		state      PlaybackState
		trigger    Trigger
		wantNext   PlaybackState
		wantEffect Effect
	}{
		{name: "idle start joins", state: StateIdle, trigger: TriggerStart, wantNext: StateJoining, wantEffect: EffectBind},
		{name: "joining bound plays", state: StateJoining, trigger: TriggerBound, wantNext: StatePlaying, wantEffect: EffectNone},
		{name: "joining connect failure returns to idle", state: StateJoining, trigger: TriggerConnectFail, wantNext: StateIdle, wantEffect: EffectReportJoin},
		{name: "joining stream failure drops head", state: StateJoining, trigger: TriggerStreamFail, wantNext: StateTransitioning, wantEffect: EffectDropHead},
		{name: "playing pause", state: StatePlaying, trigger: TriggerPause, wantNext: StatePaused, wantEffect: EffectPause},
		{name: "paused resume", state: StatePaused, trigger: TriggerResume, wantNext: StatePlaying, wantEffect: EffectResume},
		{name: "playing skip", state: StatePlaying, trigger: TriggerSkip, wantNext: StateTransitioning, wantEffect: EffectSkipHead},
		{name: "paused skip", state: StatePaused, trigger: TriggerSkip, wantNext: StateTransitioning, wantEffect: EffectSkipHead},
		{name: "playing song end", state: StatePlaying, trigger: TriggerSongEnd, wantNext: StateTransitioning, wantEffect: EffectSettleHead},
		{name: "transitioning song end", state: StateTransitioning, trigger: TriggerSongEnd, wantNext: StateTransitioning, wantEffect: EffectNone},
		{name: "transitioning advance joins", state: StateTransitioning, trigger: TriggerAdvance, wantNext: StateJoining, wantEffect: EffectBind},
		{name: "transitioning exhausted arms reaper", state: StateTransitioning, trigger: TriggerExhausted, wantNext: StateIdle, wantEffect: EffectArmReaper},
		{name: "idle previous rewinds", state: StateIdle, trigger: TriggerPrevious, wantNext: StateTransitioning, wantEffect: EffectRewind},
		{name: "playing previous rewinds", state: StatePlaying, trigger: TriggerPrevious, wantNext: StateTransitioning, wantEffect: EffectRewind},
		{name: "idle reap closes", state: StateIdle, trigger: TriggerReap, wantNext: StateCleanup, wantEffect: EffectCloseIdle},
		{name: "cleanup finishes idle", state: StateCleanup, trigger: TriggerCleanedUp, wantNext: StateIdle, wantEffect: EffectNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, ok := NextTransition(tt.state, tt.trigger)
			if !ok {
				t.Fatalf("expected transition for %v on %v", tt.state, tt.trigger)
			}
			if tr.Next != tt.wantNext {
				t.Errorf("expected next %v, got %v", tt.wantNext, tr.Next)
			}
			if tr.Effect != tt.wantEffect {
				t.Errorf("expected effect %v, got %v", tt.wantEffect, tr.Effect)
			}
		})
	}
}

func TestNextTransition_StopAndDisconnectFromEveryState(t *testing.T) {
	for _, s := range []PlaybackState{StateIdle, StateJoining, StatePlaying, StatePaused, StateTransitioning} {
		t.Run(s.String(), func(t *testing.T) {
			stop, ok := NextTransition(s, TriggerStop)
			if !ok || stop.Next != StateCleanup || stop.Effect != EffectTeardown {
				t.Errorf("expected stop to tear down from %v, got %+v (ok=%v)", s, stop, ok)
			}
			disc, ok := NextTransition(s, TriggerDisconnect)
			if !ok || disc.Next != StateCleanup || disc.Effect != EffectDetach {
				t.Errorf("expected disconnect to detach from %v, got %+v (ok=%v)", s, disc, ok)
			}
		})
	}
}

func TestNextTransition_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		state   PlaybackState
		trigger Trigger
	}{
		{name: "resume while idle", state: StateIdle, trigger: TriggerResume},
		{name: "pause while idle", state: StateIdle, trigger: TriggerPause},
		{name: "pause while paused", state: StatePaused, trigger: TriggerPause},
		{name: "resume while playing", state: StatePlaying, trigger: TriggerResume},
		{name: "skip while idle", state: StateIdle, trigger: TriggerSkip},
		{name: "start while playing", state: StatePlaying, trigger: TriggerStart},
		{name: "reap while playing", state: StatePlaying, trigger: TriggerReap},
		{name: "song end while idle", state: StateIdle, trigger: TriggerSongEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := NextTransition(tt.state, tt.trigger); ok {
				t.Errorf("expected %v to be rejected in %v", tt.trigger, tt.state)
			}
		})
	}
}

func TestPlaybackState_String(t *testing.T) {
	if StateTransitioning.String() != "transitioning" {
		t.Errorf("unexpected string %q", StateTransitioning.String())
	}
	if PlaybackState(99).String() != "unknown" {
		t.Errorf("unexpected string %q", PlaybackState(99).String())
	}
}
