package model

import (
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/entities"
	"github.com/LeonardoBeccarini/community_health_monitor/internal/model/messages"
)

// Alias per esporre tipi comuni ai servizi

type (
	SensorReading   = entities.SensorReading
	Parameters      = entities.Parameters
	SensorStatus    = entities.SensorStatus
	Community       = entities.Community
	Alert           = entities.Alert
	RiskLevel       = entities.RiskLevel
	Channel         = entities.Channel
	SensorData      = messages.SensorData
	AlertEvent      = messages.AlertEvent
	Notification    = messages.Notification
	AggregateReport = messages.AggregateReport
)

const (
	StatusOnline      = entities.StatusOnline
	StatusOffline     = entities.StatusOffline
	StatusMaintenance = entities.StatusMaintenance

	RiskLow      = entities.RiskLow
	RiskMedium   = entities.RiskMedium
	RiskHigh     = entities.RiskHigh
	RiskCritical = entities.RiskCritical
)
