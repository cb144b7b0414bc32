// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// FollowUpItem is a clickable prompt suggested by the assistant.
type FollowUpItem struct {
	Label    string `json:"label"`
	Template string `json:"template"`
}

// QuickActionType identifies the app screen a quick action links to.
type QuickActionType string

const (
	ActionLogWaterTest      QuickActionType = "log_water_test"
	ActionWaterChange       QuickActionType = "water_change"
	ActionCheckAmmonia      QuickActionType = "check_ammonia"
	ActionCheckTemperature  QuickActionType = "check_temperature"
	ActionScheduleReminder  QuickActionType = "schedule_reminder"
	ActionFilterMaintenance QuickActionType = "filter_maintenance"
	ActionDosingCalculator  QuickActionType = "dosing_calculator"
	ActionViewTrends        QuickActionType = "view_trends"
	ActionAddLivestock      QuickActionType = "add_livestock"
	ActionAddPlant          QuickActionType = "add_plant"
	ActionAddEquipment      QuickActionType = "add_equipment"
)

// actionRoutes maps every action type to its target screen.
var actionRoutes = map[QuickActionType]string{
	ActionLogWaterTest:      "/water-tests/new",
	ActionWaterChange:       "/maintenance/water-change",
	ActionCheckAmmonia:      "/water-tests?parameter=ammonia",
	ActionCheckTemperature:  "/water-tests?parameter=temperature",
	ActionScheduleReminder:  "/maintenance/reminders/new",
	ActionFilterMaintenance: "/maintenance/filter",
	ActionDosingCalculator:  "/tools/dosing",
	ActionViewTrends:        "/water-tests/trends",
	ActionAddLivestock:      "/livestock/new",
	ActionAddPlant:          "/plants/new",
	ActionAddEquipment:      "/equipment/new",
}

// QuickActionTypes lists every action type in a stable order.
func QuickActionTypes() []QuickActionType {
	return []QuickActionType{
		ActionLogWaterTest, ActionWaterChange, ActionCheckAmmonia, ActionCheckTemperature,
		ActionScheduleReminder, ActionFilterMaintenance, ActionDosingCalculator,
		ActionViewTrends, ActionAddLivestock, ActionAddPlant, ActionAddEquipment,
	}
}

// Route returns the screen route for the action type, or "" if unknown.
func (t QuickActionType) Route() string {
	return actionRoutes[t]
}

// QuickAction is a shortcut derived from keywords in an assistant reply.
type QuickAction struct {
	Type    QuickActionType `json:"type"`
	Label   string          `json:"label"`
	Payload string          `json:"payload,omitempty"`
}
