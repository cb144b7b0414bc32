// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package annotate

import (
	"strings"

	"github.com/aquaally/ally/internal/model"
)

// MaxQuickActions is the most actions returned for one reply.
const MaxQuickActions = 3

// rule maps one topic to the action it suggests.
type rule struct {
	topic    string
	keywords []string
	action   model.QuickActionType
	label    string
}

// rules is evaluated in order; earlier topics win the limited slots.
var rules = []rule{
	{
		topic:    "water change",
		keywords: []string{"water change", "change the water", "change your water", "partial change"},
		action:   model.ActionWaterChange,
		label:    "Log Water Change",
	},
	{
		topic:    "ammonia",
		keywords: []string{"ammonia", "nh3", "nh4"},
		action:   model.ActionCheckAmmonia,
		label:    "Check Ammonia",
	},
	{
		topic:    "temperature",
		keywords: []string{"temperature", "heater", "chiller", "°f", "°c"},
		action:   model.ActionCheckTemperature,
		label:    "Check Temperature",
	},
	{
		topic:    "testing",
		keywords: []string{"test your water", "water test", "test kit", "test the water", "testing"},
		action:   model.ActionLogWaterTest,
		label:    "Log Water Test",
	},
	{
		topic:    "scheduling",
		keywords: []string{"schedule", "remind", "every week", "weekly", "routine"},
		action:   model.ActionScheduleReminder,
		label:    "Set Reminder",
	},
	{
		topic:    "filter maintenance",
		keywords: []string{"clean the filter", "clean your filter", "filter media", "filter maintenance", "rinse the sponge"},
		action:   model.ActionFilterMaintenance,
		label:    "Filter Maintenance",
	},
	{
		topic:    "dosing",
		keywords: []string{"dose", "dosing", "dosage"},
		action:   model.ActionDosingCalculator,
		label:    "Dosing Calculator",
	},
	{
		topic:    "trends",
		keywords: []string{"trend", "history", "over time"},
		action:   model.ActionViewTrends,
		label:    "View Trends",
	},
	{
		topic:    "add livestock",
		keywords: []string{"add fish", "new fish", "adding fish", "livestock", "stocking"},
		action:   model.ActionAddLivestock,
		label:    "Add Livestock",
	},
	{
		topic:    "add plant",
		keywords: []string{"add a plant", "new plant", "adding plants", "aquatic plants", "live plants"},
		action:   model.ActionAddPlant,
		label:    "Add Plant",
	},
}

// DetectQuickActions returns up to MaxQuickActions shortcuts for the topics
// mentioned in content, in rule order and without duplicate types.
func DetectQuickActions(content string) []model.QuickAction {
	lower := strings.ToLower(content)
	if strings.TrimSpace(lower) == "" {
		return nil
	}

	var actions []model.QuickAction
	seen := make(map[model.QuickActionType]bool)
	for _, r := range rules {
		if seen[r.action] || !containsAny(lower, r.keywords) {
			continue
		}
		seen[r.action] = true
		actions = append(actions, model.QuickAction{
			Type:    r.action,
			Label:   r.label,
			Payload: r.action.Route(),
		})
		if len(actions) == MaxQuickActions {
			break
		}
	}
	return actions
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
