package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/overlapctl/output"
)

func NewTeamCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage the escalation hierarchy",
	}
	cmd.AddCommand(
		newTeamListCommand(),
		newTeamHierarchyCommand(),
		newTeamAddCommand(),
		newTeamUpdateCommand(),
		newTeamDeleteCommand(),
	)
	return cmd
}

func newTeamListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List team members",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			members, err := c.Team().List(cmd.Context())
			if err != nil {
				return err
			}
			return render(rt, members, func(w io.Writer) { output.WriteTeamTable(w, members) })
		},
	}
}

func newTeamHierarchyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hierarchy",
		Short: "Show members grouped by tier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			h, err := c.Team().Hierarchy(cmd.Context())
			if err != nil {
				return err
			}
			return render(rt, h, func(w io.Writer) { output.WriteHierarchyTable(w, h) })
		},
	}
}

func bindMemberFlags(cmd *cobra.Command, m *escalation.TeamMember) {
	cmd.Flags().StringVar(&m.Name, "name", "", "Member name")
	cmd.Flags().StringVar(&m.Designation, "designation", "", "Role shown in messages")
	cmd.Flags().IntVar(&m.Hierarchy, "tier", 0, "Hierarchy tier, 1 is the most junior")
	cmd.Flags().StringVar(&m.ChannelID, "channel", "", "Slack channel id")
	cmd.Flags().StringVar(&m.WebhookURL, "webhook", "", "Slack incoming webhook URL")
	cmd.Flags().StringVar(&m.Email, "email", "", "Mail address")
	cmd.Flags().IntVar(&m.MaxMessage, "max-messages", 1, "Messages sent to this member per escalation")
}

func newTeamAddCommand() *cobra.Command {
	var m escalation.TeamMember
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a team member",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			res, err := c.Team().Add(cmd.Context(), m)
			if err != nil {
				return err
			}
			return render(rt, res, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "member %v added\n", res.ID)
				output.WriteTrigger(w, res.Trigger)
			})
		},
	}
	bindMemberFlags(cmd, &m)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("tier")
	return cmd
}

func newTeamUpdateCommand() *cobra.Command {
	var flags escalation.TeamMember
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of a team member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMemberID(args[0])
			if err != nil {
				return err
			}
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			members, err := c.Team().List(cmd.Context())
			if err != nil {
				return err
			}
			var current *escalation.TeamMember
			for i := range members {
				if members[i].ID == id {
					current = &members[i]
					break
				}
			}
			if current == nil {
				return fmt.Errorf("team member %d not found", id)
			}
			mergeMember(cmd, current, flags)

			res, err := c.Team().Update(cmd.Context(), *current)
			if err != nil {
				return err
			}
			return render(rt, res, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "member %d updated\n", id)
				output.WriteTrigger(w, res.Trigger)
			})
		},
	}
	bindMemberFlags(cmd, &flags)
	return cmd
}

// mergeMember copies only the flags the user set onto m.
func mergeMember(cmd *cobra.Command, m *escalation.TeamMember, flags escalation.TeamMember) {
	changed := cmd.Flags().Changed
	if changed("name") {
		m.Name = flags.Name
	}
	if changed("designation") {
		m.Designation = flags.Designation
	}
	if changed("tier") {
		m.Hierarchy = flags.Hierarchy
	}
	if changed("channel") {
		m.ChannelID = flags.ChannelID
	}
	if changed("webhook") {
		m.WebhookURL = flags.WebhookURL
	}
	if changed("email") {
		m.Email = flags.Email
	}
	if changed("max-messages") {
		m.MaxMessage = flags.MaxMessage
	}
}

func newTeamDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a team member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMemberID(args[0])
			if err != nil {
				return err
			}
			rt, c, err := setup(cmd)
			if err != nil {
				return err
			}
			res, err := c.Team().Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			return render(rt, res, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "member %d deleted\n", id)
				output.WriteTrigger(w, res.Trigger)
			})
		},
	}
}

func parseMemberID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid member id %q", s)
	}
	return id, nil
}
