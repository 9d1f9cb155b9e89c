package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/toolscout/prospector/internal/model"
)

var (
	campaignName    string
	campaignCompany string
	campaignTitles  []string
	campaignTools   []string
	campaignDept    string
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Manage prospect search campaigns",
}

var campaignsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "migrate", true)
		if err != nil {
			return err
		}
		defer env.Close()

		campaigns, err := env.Campaigns.List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tFOUND\tSEARCHED\tUPDATED")
		for _, c := range campaigns {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				c.ID, c.Name, c.Status,
				c.Progress.ProspectsFound, c.Progress.TotalSearched,
				c.UpdatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var campaignsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a campaign in draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "migrate", true)
		if err != nil {
			return err
		}
		defer env.Close()

		created, err := env.Campaigns.Create(ctx, campaignName, model.CampaignRequest{
			CompanyName: campaignCompany,
			JobTitles:   campaignTitles,
			TargetTools: campaignTools,
			Department:  campaignDept,
		})
		if err != nil {
			return err
		}

		fmt.Printf("created campaign %s (%s)\n", created.ID, created.Name)
		return nil
	},
}

var campaignsRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Start a campaign and wait for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id := args[0]

		env, err := initEnv(ctx, "search", true)
		if err != nil {
			return err
		}
		defer env.Close()

		stream, cancel := env.Campaigns.Subscribe(id)
		defer cancel()

		if _, err := env.Campaigns.Start(ctx, id); err != nil {
			return err
		}

		for {
			select {
			case ev, open := <-stream:
				if !open {
					return nil
				}
				fmt.Printf("[%s] %s\n", ev.Kind, ev.Message)
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}

			campaign, err := env.Campaigns.Get(ctx, id)
			if err != nil {
				return err
			}
			if campaign.Status.Terminal() {
				return printCampaignOutcome(ctx, env, campaign)
			}
		}
	},
}

func printCampaignOutcome(_ context.Context, env *searchEnv, campaign *model.Campaign) error {
	fmt.Printf("campaign %s: %s (%d prospects from %d candidates)\n",
		campaign.ID, campaign.Status,
		campaign.Progress.ProspectsFound, campaign.Progress.TotalSearched)

	if campaign.Status == model.CampaignFailed {
		return eris.Errorf("campaign %s failed", campaign.ID)
	}
	if result := env.Campaigns.LastResult(campaign.ID); result != nil {
		fmt.Println()
		printResult(os.Stdout, result)
	}
	return nil
}

func init() {
	campaignsCreateCmd.Flags().StringVar(&campaignName, "name", "", "campaign name (default derived from company and titles)")
	campaignsCreateCmd.Flags().StringVar(&campaignCompany, "company", "", "target company name")
	campaignsCreateCmd.Flags().StringSliceVar(&campaignTitles, "titles", nil, "job titles to target")
	campaignsCreateCmd.Flags().StringSliceVar(&campaignTools, "tools", nil, "tools the prospects must use")
	campaignsCreateCmd.Flags().StringVar(&campaignDept, "department", "", "department filter")
	_ = campaignsCreateCmd.MarkFlagRequired("company")

	campaignsCmd.AddCommand(campaignsListCmd, campaignsCreateCmd, campaignsRunCmd)
	rootCmd.AddCommand(campaignsCmd)
}
