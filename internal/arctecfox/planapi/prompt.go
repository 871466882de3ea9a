package planapi

import (
	"fmt"
	"time"

	"github.com/gartstein/arctecfox/internal/arctecfox/models"
)

// planStart returns the requested start date, or today in UTC.
func planStart(asset models.AssetDescription, now time.Time) string {
	if asset.DateOfPlanStart != "" {
		return asset.DateOfPlanStart
	}
	return now.UTC().Format(time.DateOnly)
}

// BuildPrompt renders the planning prompt for an asset.
func BuildPrompt(asset models.AssetDescription, now time.Time) string {
	return fmt.Sprintf(`Generate a detailed preventive maintenance (PM) plan for this asset:

- Asset Name: %[1]s
- Model: %[2]s
- Serial Number: %[3]s
- Asset Category: %[4]s
- Usage Hours: %[5]d hours
- Usage Cycles: %[6]d cycles
- Environmental Conditions: %[7]s
- Date of Plan Start: %[8]s

Base the tasks and intervals on the manufacturer's manual. Without a manual, use practice for similar assets in the same category. Make the instructions detailed.

Usage insights: in a field named "usage_insights", analyse the current usage profile (%[5]d hours, %[6]d cycles) and the outages or failure modes typical at this point in the asset's life.

For each PM task:
1. Describe the task.
2. Give step-by-step instructions.
3. Include safety precautions.
4. Note relevant regulations or compliance checks.
5. Name the failure points the task prevents.
6. Adjust the instructions to the usage data and environment.
7. Add an "engineering_rationale" field explaining the task and interval.
8. List the dates over the 12 months after the plan start when the task is due.
9. Include "usage_insights" in every task object.

Return only a JSON object, no markdown or commentary, with a key "maintenance_plan" holding an array of objects. Each object must have:
- "task_name" (string)
- "maintenance_interval" (string)
- "instructions" (array of strings)
- "reason" (string)
- "engineering_rationale" (string)
- "safety_precautions" (string)
- "common_failures_prevented" (string)
- "usage_insights" (string)
- "scheduled_dates" (array of YYYY-MM-DD strings)
`,
		asset.Name,
		asset.Model,
		asset.Serial,
		asset.Category,
		asset.Hours,
		asset.Cycles,
		asset.Environment,
		planStart(asset, now),
	)
}
