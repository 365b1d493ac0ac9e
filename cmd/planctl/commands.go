package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"alcyxob/coaching-app/internal/client"
	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/poller"
)

type LoginCmd struct {
	Email    string `arg:"" help:"Coach email."`
	Password string `help:"Password." env:"PLANCTL_PASSWORD" required:""`
}

func (c *LoginCmd) Run(app *appContext) error {
	token, err := app.api.Login(app.ctx, c.Email, c.Password)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

type SubmitCmd struct {
	ClientID       string `arg:"" name:"client-id" help:"Client to generate for."`
	Mode           string `help:"training, nutrition or full." enum:"training,nutrition,full" default:"full"`
	Questionnaire  string `short:"q" help:"Questionnaire submission id. Defaults to the suggested one."`
	PrevTraining   string `help:"Previous training plan id."`
	PrevNutrition  string `help:"Previous nutrition plan id."`
	SyncPlan       string `help:"Training plan id the nutrition plan syncs with."`
	UseDefaults    bool   `help:"Fill empty plan references from the suggested defaults."`
	Wait           bool   `short:"w" help:"Follow the job until it finishes."`
	AttachExisting bool   `help:"If a job is already running for the client, follow that one instead of failing."`
}

func optional(id string) *string {
	if id = strings.TrimSpace(id); id == "" {
		return nil
	}
	return &id
}

func (c *SubmitCmd) Run(app *appContext) error {
	mode := domain.JobMode(c.Mode)
	inputs := domain.GenerationInputs{QuestionnaireSubmissionID: c.Questionnaire}
	if mode != domain.ModeNutrition {
		inputs.PreviousTrainingPlanID = optional(c.PrevTraining)
	}
	if mode != domain.ModeTraining {
		inputs.PreviousNutritionPlanID = optional(c.PrevNutrition)
		inputs.TrainingPlanIDForSync = optional(c.SyncPlan)
	}

	if inputs.QuestionnaireSubmissionID == "" || c.UseDefaults {
		defaults, err := app.api.LineageDefaults(app.ctx, c.ClientID)
		if err != nil {
			return fmt.Errorf("load defaults: %w", err)
		}
		applyDefaults(mode, &inputs, defaults, c.UseDefaults)
	}

	jobID, err := app.api.Submit(app.ctx, c.ClientID, mode, inputs)
	if active, ok := client.IsConflict(err); ok {
		if !c.AttachExisting {
			return fmt.Errorf("generation already in progress for this client (job %s); poll it with: planctl wait %s", active, active)
		}
		fmt.Fprintf(os.Stderr, "generation already in progress, following job %s\n", active)
		jobID, err = active, nil
	}
	if err != nil {
		return err
	}
	fmt.Println(jobID)

	if !c.Wait {
		return nil
	}
	return follow(app, c.ClientID, jobID)
}

// applyDefaults fills the questionnaire, and the plan references when
// withPlans is set, from the server's suggestions.
func applyDefaults(mode domain.JobMode, in *domain.GenerationInputs, d *domain.LineageDefaults, withPlans bool) {
	if in.QuestionnaireSubmissionID == "" && d.Questionnaire != nil {
		in.QuestionnaireSubmissionID = d.Questionnaire.ID
	}
	if !withPlans {
		return
	}
	if mode != domain.ModeNutrition && in.PreviousTrainingPlanID == nil && d.PreviousTrainingPlan != nil {
		in.PreviousTrainingPlanID = &d.PreviousTrainingPlan.ID
	}
	if mode != domain.ModeTraining && in.PreviousNutritionPlanID == nil && d.PreviousNutritionPlan != nil {
		in.PreviousNutritionPlanID = &d.PreviousNutritionPlan.ID
	}
	if mode == domain.ModeNutrition && in.TrainingPlanIDForSync == nil && d.SyncPlan != nil {
		in.TrainingPlanIDForSync = &d.SyncPlan.ID
	}
}

// follow watches the job the way the back office detail view does: a
// group bound to this command, with the client session reloaded when the
// job finishes.
func follow(app *appContext, clientID, jobID string) error {
	group := app.poller.NewGroup(app.ctx)
	defer group.Close()

	cache := poller.NewSessionCache(app.api, clientID, app.log)
	w := group.Watch(jobID, cache)
	view, err := w.Result()
	if err != nil {
		return waitError(jobID, err)
	}
	if view.Status == domain.JobFailed {
		return fmt.Errorf("generation failed: %s", view.Error)
	}

	printStatus(view)
	if s := cache.Session(); s != nil {
		fmt.Printf("client now has %d training and %d nutrition plans\n", len(s.TrainingPlans), len(s.NutritionPlans))
	}
	return nil
}

func waitError(jobID string, err error) error {
	var timeout *poller.TimeoutError
	if errors.As(err, &timeout) {
		return fmt.Errorf("%w; check again with: planctl status %s", timeout, jobID)
	}
	return err
}

type StatusCmd struct {
	JobID string `arg:"" name:"job-id"`
}

func (c *StatusCmd) Run(app *appContext) error {
	view, err := app.api.JobStatus(app.ctx, c.JobID)
	if err != nil {
		return err
	}
	printStatus(view)
	return nil
}

type WaitCmd struct {
	JobID string `arg:"" name:"job-id"`
}

func (c *WaitCmd) Run(app *appContext) error {
	view, err := app.poller.Wait(app.ctx, c.JobID)
	if err != nil {
		return waitError(c.JobID, err)
	}
	printStatus(view)
	if view.Status == domain.JobFailed {
		return errors.New("generation failed")
	}
	return nil
}

func printStatus(view *domain.JobStatusView) {
	fmt.Printf("job %s: %s\n", view.JobID, view.Status)
	if view.Result != nil {
		if id := view.Result.TrainingPlanID; id != nil {
			fmt.Printf("  training plan:  %s\n", *id)
		}
		if id := view.Result.NutritionPlanID; id != nil {
			fmt.Printf("  nutrition plan: %s\n", *id)
		}
	}
	if view.Error != "" {
		fmt.Printf("  error: %s\n", view.Error)
	}
}

type PlansCmd struct {
	ClientID string `arg:"" name:"client-id"`
	Kind     string `help:"training or nutrition." enum:"training,nutrition" default:"training"`
}

func (c *PlansCmd) Run(app *appContext) error {
	plans, err := app.api.ListPlans(app.ctx, c.ClientID, domain.PlanKind(c.Kind))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPERIOD\tGENERATED\tPREVIOUS\tPDF\tEDITED")
	for _, p := range plans {
		fmt.Fprintf(tw, "%s\t%02d/%d\t%s\t%s\t%t\t%t\n",
			p.ID, p.Month, p.Year, p.GeneratedAt.Format("2006-01-02 15:04"), deref(p.PreviousPlanID), p.PDFID != nil, p.Edited)
	}
	return tw.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

type SessionCmd struct {
	ClientID string `arg:"" name:"client-id"`
}

func (c *SessionCmd) Run(app *appContext) error {
	session, err := app.api.LoadClientSession(app.ctx, c.ClientID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(session)
}

type DefaultsCmd struct {
	ClientID string `arg:"" name:"client-id"`
}

func (c *DefaultsCmd) Run(app *appContext) error {
	d, err := app.api.LineageDefaults(app.ctx, c.ClientID)
	if err != nil {
		return err
	}
	if d.Questionnaire != nil {
		fmt.Printf("questionnaire:           %s (%s)\n", d.Questionnaire.ID, d.Questionnaire.Kind)
	} else {
		fmt.Println("questionnaire:           -")
	}
	for _, row := range []struct {
		label string
		plan  *domain.Plan
	}{
		{"previous training plan: ", d.PreviousTrainingPlan},
		{"previous nutrition plan:", d.PreviousNutritionPlan},
		{"sync plan:              ", d.SyncPlan},
	} {
		if row.plan == nil {
			fmt.Printf("%s  -\n", row.label)
			continue
		}
		fmt.Printf("%s  %s\n", row.label, row.plan.ID)
	}
	return nil
}
