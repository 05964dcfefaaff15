package coach

import (
	"fmt"
	"strings"

	"fitflow/coach-app/internal/domain"
)

// The policy block shipped with every prompt. The staging engine and executor
// are built to the same rules (tool calls for every action, the 0=Sunday day
// convention, update-don't-recreate), so the block is configuration the rest
// of the pipeline already honors rather than something re-validated downstream.
const policyBlock = `## Rules

- If the user's request is underspecified, ask a clarifying question instead of guessing.
- When you take an action (creating a template, plan, or recipe, or updating a plan), always use a tool invocation. Never describe the action in prose only.
- Before every tool invocation, write a short rationale in your reply explaining what you are about to propose and why.
- Always fill in the suggested performance fields (reps, weight, time, or distance as appropriate for the exercise type) for every exercise slot you propose.
- Days of the week are numbered 0=Sunday through 6=Saturday. Use this convention everywhere.
- If the user already has an active plan and asks for schedule changes, update that plan. Never create a new plan when the active one should be updated instead.`

// CompilePrompt deterministically renders a snapshot into the system prompt.
// Pure function: same snapshot, same string.
func CompilePrompt(snap *Snapshot) string {
	var b strings.Builder

	b.WriteString("You are an AI fitness coach inside a workout-tracking app. ")
	b.WriteString("You help the user plan training and nutrition using the context below.\n\n")

	writeProfile(&b, snap)
	writeLibrary(&b, snap)
	writeTemplates(&b, snap)
	writeRecentActivity(&b, snap)
	writePerformance(&b, snap)
	writeStats(&b, snap)
	writeActivePlan(&b, snap)

	b.WriteString(policyBlock)
	b.WriteString("\n")
	return b.String()
}

func writeProfile(b *strings.Builder, snap *Snapshot) {
	b.WriteString("## Profile\n")
	fmt.Fprintf(b, "Weight unit: %s. Distance unit: %s.\n\n", snap.WeightUnit, snap.DistanceUnit)
}

func writeLibrary(b *strings.Builder, snap *Snapshot) {
	b.WriteString("## Exercise library\n")
	if len(snap.Library) == 0 {
		b.WriteString("Empty. New exercises will be created as needed.\n\n")
		return
	}
	for _, e := range snap.Library {
		fmt.Fprintf(b, "- %s (%s)\n", e.Name, e.Type)
	}
	b.WriteString("\n")
}

func writeTemplates(b *strings.Builder, snap *Snapshot) {
	b.WriteString("## Workout templates\n")
	if len(snap.Templates) == 0 {
		b.WriteString("None yet.\n\n")
		return
	}
	for _, tpl := range snap.Templates {
		fmt.Fprintf(b, "### %s\n", tpl.Name)
		if tpl.Notes != "" {
			fmt.Fprintf(b, "%s\n", tpl.Notes)
		}
		for _, slot := range tpl.Slots {
			fmt.Fprintf(b, "- %s: %d sets, %ds rest%s\n",
				slot.Name, slot.SetsCount, slot.RestTimeSeconds, suggestedSummary(slot))
		}
	}
	b.WriteString("\n")
}

func suggestedSummary(slot SlotSummary) string {
	var parts []string
	if slot.SuggestedReps != nil {
		parts = append(parts, fmt.Sprintf("%d reps", *slot.SuggestedReps))
	}
	if slot.SuggestedWeight != nil {
		parts = append(parts, fmt.Sprintf("%.1fkg", *slot.SuggestedWeight))
	}
	if slot.SuggestedTime != nil {
		parts = append(parts, fmt.Sprintf("%ds", *slot.SuggestedTime))
	}
	if slot.SuggestedDistance != nil {
		parts = append(parts, fmt.Sprintf("%.0fm", *slot.SuggestedDistance))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (suggested: " + strings.Join(parts, ", ") + ")"
}

func writeRecentActivity(b *strings.Builder, snap *Snapshot) {
	b.WriteString("## Recent activity (last 14 days)\n")
	if len(snap.RecentLogs) == 0 {
		b.WriteString("No sessions logged.\n\n")
		return
	}
	for _, l := range snap.RecentLogs {
		label := l.Label
		if label == "" {
			label = "Workout"
		}
		fmt.Fprintf(b, "- %s: %s, %d min\n", l.Date.Format("2006-01-02"), label, l.DurationMinutes)
	}
	b.WriteString("\n")
}

func writePerformance(b *strings.Builder, snap *Snapshot) {
	b.WriteString("## Recent performance\n")
	if len(snap.Performance) == 0 {
		b.WriteString("No set history.\n\n")
		return
	}
	for _, perf := range snap.Performance {
		fmt.Fprintf(b, "- %s (%s): ", perf.Name, perf.Date.Format("2006-01-02"))
		var sets []string
		for _, s := range perf.Sets {
			sets = append(sets, formatSet(s))
		}
		b.WriteString(strings.Join(sets, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func formatSet(s SetSummary) string {
	switch {
	case s.Reps != nil && s.WeightKg != nil:
		return fmt.Sprintf("%dx%.1fkg", *s.Reps, *s.WeightKg)
	case s.Reps != nil && s.TimeSeconds != nil:
		return fmt.Sprintf("%d reps in %ds", *s.Reps, *s.TimeSeconds)
	case s.TimeSeconds != nil && s.DistanceMeters != nil:
		return fmt.Sprintf("%.0fm in %ds", *s.DistanceMeters, *s.TimeSeconds)
	case s.TimeSeconds != nil:
		return fmt.Sprintf("%ds", *s.TimeSeconds)
	case s.Reps != nil:
		return fmt.Sprintf("%d reps", *s.Reps)
	}
	return "-"
}

func writeStats(b *strings.Builder, snap *Snapshot) {
	b.WriteString("## Stats\n")
	fmt.Fprintf(b, "Total sessions: %d. Sessions/week (30-day): %.1f. Current streak: %d days.\n\n",
		snap.Stats.TotalSessions, snap.Stats.SessionsPerWeek, snap.Stats.StreakDays)
}

// writeActivePlan renders one line per week: day=template(status) pairs,
// rest days omitted.
func writeActivePlan(b *strings.Builder, snap *Snapshot) {
	b.WriteString("## Active plan\n")
	if snap.ActivePlan == nil {
		b.WriteString("None.\n\n")
		return
	}
	plan := snap.ActivePlan
	fmt.Fprintf(b, "%s (%d weeks, started %s)", plan.Name, plan.DurationWeeks, plan.StartDate.Format("2006-01-02"))
	if plan.Goal != "" {
		fmt.Fprintf(b, " - goal: %s", plan.Goal)
	}
	b.WriteString("\n")
	for _, week := range plan.Weeks {
		fmt.Fprintf(b, "Week %d:", week.Week)
		for _, entry := range week.Entries {
			fmt.Fprintf(b, " %s=%s(%s)", domain.DayNames[entry.DayOfWeek], entry.TemplateName, entry.Status)
		}
		fmt.Fprintf(b, " [%d days]\n", week.TotalDays)
	}
	b.WriteString("\n")
}
