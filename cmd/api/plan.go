/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "fmt"
    "io"
    "os"
    "text/tabwriter"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/planning"
    "github.com/fatih/color"
    "github.com/spf13/cobra"
)

var planFlags planning.Request

var planCmd = &cobra.Command{
    Use:   "plan",
    Short: "Create sprint assignments for a project and team",
    RunE: func(cmd *cobra.Command, _ []string) error {
        a, err := newApp(cmd.Context())
        if err != nil { return err }
        defer a.Close()
        res, err := a.svc.CreateAssignments(cmd.Context(), planFlags)
        if err != nil { return err }
        renderPlan(os.Stdout, res)
        return nil
    },
}

var syncCmd = &cobra.Command{
    Use:   "sync <project>",
    Short: "Refresh stored issues of a project from Jira",
    Args:  cobra.ExactArgs(1),
    RunE: func(cmd *cobra.Command, args []string) error {
        a, err := newApp(cmd.Context())
        if err != nil { return err }
        defer a.Close()
        n, err := a.svc.SyncProject(cmd.Context(), args[0])
        if err != nil { return err }
        fmt.Printf("%s %d issues synced for %s\n", color.GreenString("ok"), n, args[0])
        return nil
    },
}

var lastRunCmd = &cobra.Command{
    Use:   "last-run",
    Short: "Show the most recent planning run",
    RunE: func(cmd *cobra.Command, _ []string) error {
        a, err := newApp(cmd.Context())
        if err != nil { return err }
        defer a.Close()
        run, err := a.svc.GetLastRun(cmd.Context())
        if err != nil { return err }
        renderRun(os.Stdout, run)
        return nil
    },
}

func init() {
    planCmd.Flags().StringVar(&planFlags.Project, "project", "", "Jira project key")
    planCmd.Flags().StringVar(&planFlags.Sprint, "sprint", "", "sprint name stored on each assignment")
    planCmd.Flags().StringVar(&planFlags.Team, "team", "", "team whose members receive work")
    for _, f := range []string{"project", "sprint", "team"} { _ = planCmd.MarkFlagRequired(f) }
}

func renderPlan(out io.Writer, res *planning.Result) {
    if len(res.Assignments) == 0 {
        fmt.Fprintln(out, color.YellowString("no plannable issues"))
        return
    }
    w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
    fmt.Fprintln(w, "ISSUE\tASSIGNEE\tPOINTS\tDAYS\tTITLE")
    for _, a := range res.Assignments {
        fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", a.IssueKey, a.AssigneeName, a.StoryPoints, a.EstimatedDays, a.Title)
    }
    _ = w.Flush()

    st := res.Stats
    fmt.Fprintf(out, "\n%s %d assignments (%d new, %d kept, %d dropped)\n",
        color.GreenString("sprint %s:", res.Assignments[0].SprintName), len(res.Assignments), st.Allocated, st.Preserved, st.Dropped)
    fmt.Fprintf(out, "estimates: %d refined, %d fallback, %d adjusted to tier\n", st.Refined, st.Fallbacks, st.Clamped)
    fmt.Fprintf(out, "store: %d inserted, %d updated, %d reassigned, %d duplicates removed\n", st.Inserted, st.Updated, st.Reassigned, st.Deduped)
}

func renderRun(out io.Writer, run *domain.PlanningRun) {
    status := color.GreenString("success")
    if !run.Success { status = color.RedString("failed: %s", run.Error) }
    fmt.Fprintf(out, "run %s  %s\n", run.ID, status)
    fmt.Fprintf(out, "project=%s sprint=%s team=%s\n", run.Project, run.Sprint, run.Team)
    fmt.Fprintf(out, "started %s", run.StartedAt.Format(time.RFC3339))
    if run.FinishedAt != nil { fmt.Fprintf(out, ", took %s", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)) }
    fmt.Fprintf(out, "\nkept %d, allocated %d, refined %d, fallbacks %d\n", run.Preserved, run.Allocated, run.Refined, run.Fallbacks)
}
