package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cloudmaster/examprep/internal/repository"
	"github.com/cloudmaster/examprep/internal/service"
	"github.com/cloudmaster/examprep/internal/worker"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and maintain exam sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions of a user, or the ownerless ones",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Submit every timed session whose time has run out",
	Args:  cobra.NoArgs,
	RunE:  runSessionsExpire,
}

func init() {
	sessionsListCmd.Flags().String("email", "", "Owner email; empty lists ownerless sessions")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsDeleteCmd, sessionsExpireCmd)
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	var owner *uuid.UUID
	if email, _ := cmd.Flags().GetString("email"); email != "" {
		user, err := a.users.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("look up %s: %w", email, err)
		}
		owner = &user.ID
	}

	sessions, err := a.sessions.ListSessions(ctx, owner)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEXAM\tTITLE\tMODE\tSTATUS\tANSWERED\tSCORE\tSTARTED")
	for i := range sessions {
		s := service.SummarizeSession(&sessions[i])
		score := "-"
		if s.Score != nil {
			score = fmt.Sprintf("%d%%", *s.Score)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			s.ID, s.ExamID, s.Title, s.Mode, s.Status, s.AnsweredCount, s.QuestionCount, score,
			s.StartedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.sessions.DeleteSession(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", id)
	return nil
}

// runSessionsExpire submits every open timed session past its deadline,
// for installs where the server's worker was down past some deadlines.
func runSessionsExpire(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	queue := repository.NewMemoryDeadlineRepository()
	sessions := service.NewExamSessionService(a.store, a.exams, queue, a.log)
	if _, err := sessions.RestoreDeadlines(ctx); err != nil {
		return err
	}

	w := worker.NewExpiryWorker(queue, sessions, 0, a.log)
	submitted, stuck, err := w.Drain(ctx)
	if err != nil {
		return err
	}
	return reportExpiry(cmd.OutOrStdout(), submitted, append(queue.Failed(), stuck...))
}

// reportExpiry prints the outcome of an expiry run and fails when any
// session was left open.
func reportExpiry(out io.Writer, submitted int, open []uuid.UUID) error {
	fmt.Fprintf(out, "Submitted %d expired sessions\n", submitted)
	if len(open) == 0 {
		return nil
	}
	for _, id := range open {
		fmt.Fprintf(out, "Still open: %s\n", id)
	}
	return fmt.Errorf("%d sessions could not be submitted", len(open))
}
