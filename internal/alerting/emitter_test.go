package alerting

import (
	"testing"
	"time"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/quality"
	"github.com/LeonardoBeccarini/community_health_monitor/pkg/rng"
)

func reading(p entities.Parameters) entities.SensorReading {
	return entities.SensorReading{
		SensorID:    "WQ_JORHAT_002",
		Location:    "Jorhat Community - Community Well",
		CommunityID: "COMM_004",
		Parameters:  p,
		Status:      entities.StatusOnline,
	}
}

func TestEmitSkipsLowSeverity(t *testing.T) {
	e := NewEmitter(&rng.Sequence{Floats: []float64{0}}, 1, entities.DefaultCommunities())
	r := reading(entities.Parameters{PH: 7, Turbidity: 1, Bacteria: 10})
	if _, ok := e.Emit(r, quality.Assess(r.Parameters), time.Now()); ok {
		t.Error("low severity must never emit")
	}
}

func TestEmitGate(t *testing.T) {
	r := reading(entities.Parameters{PH: 9, Turbidity: 1, Bacteria: 10})
	a := quality.Assess(r.Parameters)

	closed := NewEmitter(&rng.Sequence{Floats: []float64{0.5}}, DefaultProbability, entities.DefaultCommunities())
	if _, ok := closed.Emit(r, a, time.Now()); ok {
		t.Error("draw 0.5 must not pass a 0.5 gate")
	}
	open := NewEmitter(&rng.Sequence{Floats: []float64{0.49}}, DefaultProbability, entities.DefaultCommunities())
	if _, ok := open.Emit(r, a, time.Now()); !ok {
		t.Error("draw 0.49 must pass a 0.5 gate")
	}
}

func TestEmitBuildsAlert(t *testing.T) {
	now := time.Date(2025, 9, 21, 10, 0, 0, 0, time.UTC)
	e := NewEmitter(&rng.Sequence{Floats: []float64{0.1}, Ints: []int{2}}, DefaultProbability, entities.DefaultCommunities())
	r := reading(entities.Parameters{PH: 9, Turbidity: 5, Bacteria: 250})
	a := quality.Assess(r.Parameters)

	al, ok := e.Emit(r, a, now)
	if !ok {
		t.Fatal("expected an alert")
	}
	if al.ID != "WQ_JORHAT_002_1758448800000" {
		t.Errorf("ID = %s", al.ID)
	}
	if al.Severity != entities.RiskCritical {
		t.Errorf("Severity = %s", al.Severity)
	}
	if al.Title != "Jorhat Community - pH out of range" {
		t.Errorf("Title = %q", al.Title)
	}
	if al.Message != "Jorhat Community - Community Well: pH out of range, High turbidity, Bacterial contamination" {
		t.Errorf("Message = %q", al.Message)
	}
	if al.Channel != entities.ChannelVoice {
		t.Errorf("Channel = %s", al.Channel)
	}
	if al.CommunityID != "COMM_004" || al.SensorID != "WQ_JORHAT_002" || al.Acknowledged {
		t.Errorf("unexpected alert %+v", al)
	}
	if got := e.ToastTitle(al, a); got != "Jorhat Community: pH out of range" {
		t.Errorf("ToastTitle = %q", got)
	}
}

func TestEmitUnknownCommunityFallsBackToID(t *testing.T) {
	e := NewEmitter(&rng.Sequence{Floats: []float64{0}}, 1, nil)
	r := reading(entities.Parameters{PH: 7, Turbidity: 9, Bacteria: 10})
	r.CommunityID = "COMM_999"
	al, ok := e.Emit(r, quality.Assess(r.Parameters), time.Now())
	if !ok {
		t.Fatal("expected an alert")
	}
	if al.Title != "COMM_999 - High turbidity" {
		t.Errorf("Title = %q", al.Title)
	}
}

func TestEmitProbabilityClamped(t *testing.T) {
	r := reading(entities.Parameters{PH: 9, Turbidity: 1, Bacteria: 10})
	a := quality.Assess(r.Parameters)
	never := NewEmitter(&rng.Sequence{Floats: []float64{0}}, -3, nil)
	if _, ok := never.Emit(r, a, time.Now()); ok {
		t.Error("negative probability must behave as 0")
	}
	always := NewEmitter(&rng.Sequence{Floats: []float64{0.999}}, 7, nil)
	if _, ok := always.Emit(r, a, time.Now()); !ok {
		t.Error("probability above 1 must behave as 1")
	}
}
