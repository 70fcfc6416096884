package main

import (
    "fmt"
    "io"
    "os"
    "text/tabwriter"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/fatih/color"
    "github.com/spf13/cobra"
)

var teamCmd = &cobra.Command{
    Use:   "team",
    Short: "Manage teams and their members",
    RunE: func(cmd *cobra.Command, _ []string) error {
        a, err := newApp(cmd.Context())
        if err != nil { return err }
        defer a.Close()
        teams, err := a.svc.Teams(cmd.Context())
        if err != nil { return err }
        for _, t := range teams {
            if t.ID == 0 {
                fmt.Printf("%s %s\n", t.Name, color.HiBlackString("(default)"))
                continue
            }
            fmt.Println(t.Name)
        }
        return nil
    },
}

var teamShowCmd = &cobra.Command{
    Use:   "show <name>",
    Short: "List members of a team",
    Args:  cobra.ExactArgs(1),
    RunE: func(cmd *cobra.Command, args []string) error {
        a, err := newApp(cmd.Context())
        if err != nil { return err }
        defer a.Close()
        t, err := a.svc.TeamDetails(cmd.Context(), args[0])
        if err != nil { return err }
        renderMembers(os.Stdout, t)
        return nil
    },
}

var teamAddCmd = &cobra.Command{
    Use:   "add <name>",
    Short: "Create a team",
    Args:  cobra.ExactArgs(1),
    RunE: func(cmd *cobra.Command, args []string) error {
        a, err := newApp(cmd.Context())
        if err != nil { return err }
        defer a.Close()
        t, err := a.svc.AddTeam(cmd.Context(), args[0])
        if err != nil { return err }
        fmt.Printf("%s team %s (id %d)\n", color.GreenString("ok"), t.Name, t.ID)
        return nil
    },
}

var memberFlags domain.Person

var memberAddCmd = &cobra.Command{
    Use:   "member-add",
    Short: "Add a person to a team",
    RunE: func(cmd *cobra.Command, _ []string) error {
        a, err := newApp(cmd.Context())
        if err != nil { return err }
        defer a.Close()
        id, err := a.svc.AddMember(cmd.Context(), memberFlags)
        if err != nil { return err }
        fmt.Printf("%s %s added to %s (id %d)\n", color.GreenString("ok"), memberFlags.Username, memberFlags.Team, id)
        return nil
    },
}

func init() {
    f := memberAddCmd.Flags()
    f.StringVar(&memberFlags.Team, "team", "", "team name, created when missing")
    f.StringVar(&memberFlags.Username, "username", "", "unique username")
    f.StringVar(&memberFlags.Email, "email", "", "unique email")
    f.StringVar(&memberFlags.Role, "role", "developer", "developer, frontend, qa, ...")
    f.IntVar(&memberFlags.TicketsSolved, "tickets", 0, "tickets solved so far")
    for _, name := range []string{"team", "username", "email"} { _ = memberAddCmd.MarkFlagRequired(name) }

    teamCmd.AddCommand(teamShowCmd)
    teamCmd.AddCommand(teamAddCmd)
    teamCmd.AddCommand(memberAddCmd)
}

func renderMembers(out io.Writer, t *domain.TeamWithMembers) {
    fmt.Fprintln(out, color.CyanString("team %s", t.Name))
    if len(t.Users) == 0 {
        fmt.Fprintln(out, color.YellowString("no members"))
        return
    }
    w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
    fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tTICKETS")
    for _, p := range t.Users {
        fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", p.ID, p.Username, p.Email, p.Role, p.TicketsSolved)
    }
    _ = w.Flush()
}
