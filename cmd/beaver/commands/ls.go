package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/gqlclient"
	"github.com/archbeaver/beaver/logger"
	"github.com/archbeaver/beaver/provider"
)

// LsCmd lists catalog entries from a running server through the GraphQL client
var LsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List catalog entries from a running Beaver server",
	Long: `Query a running server with the Beaver GraphQL client.

The endpoint comes from client.endpoint unless --endpoint is given.

Examples:
  beaver ls components                    # list shape
  beaver ls components --detail           # detail shape with team, instances and ADRs
  beaver ls components --status ACTIVE --tag payments
  beaver ls component 12
  beaver ls adrs --status ACCEPTED
  beaver ls environments`,
}

var (
	lsEndpoint string
	lsDetail   bool
	lsStatus   string
	lsTag      string
	lsSearch   string
)

func init() {
	LsCmd.PersistentFlags().StringVar(&lsEndpoint, "endpoint", "", "GraphQL endpoint (overrides client.endpoint)")
	LsCmd.PersistentFlags().BoolVar(&lsDetail, "detail", false, "Fetch the detail shape")

	lsComponentsCmd.Flags().StringVar(&lsStatus, "status", "", "Filter by status (ACTIVE, INACTIVE, DEPRECATED)")
	lsComponentsCmd.Flags().StringVar(&lsTag, "tag", "", "Filter by tag")
	lsComponentsCmd.Flags().StringVar(&lsSearch, "search", "", "Filter by name substring")
	lsADRsCmd.Flags().StringVar(&lsStatus, "status", "", "Filter by status (DRAFT, ACCEPTED, SUPERSEDED, REJECTED)")

	LsCmd.AddCommand(lsComponentsCmd)
	LsCmd.AddCommand(lsComponentCmd)
	LsCmd.AddCommand(lsADRsCmd)
	LsCmd.AddCommand(lsEnvironmentsCmd)
	LsCmd.AddCommand(lsTeamsCmd)
}

func lsShape() gqlclient.Shape {
	if lsDetail {
		return gqlclient.ShapeDetail
	}
	return gqlclient.ShapeList
}

// withClient runs fn against the process provider and prints the last
// recorded client error when fn fails
func withClient(ctx context.Context, fn func(*gqlclient.Client) error) error {
	cfg, err := LoadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if lsEndpoint != "" {
		cfg.Client.Endpoint = lsEndpoint
	}

	p, err := provider.New(cfg.Client, provider.WithLogger(logger.ComponentLogger("provider")))
	if err != nil {
		return err
	}
	defer p.Close()

	if err := fn(p.Client()); err != nil {
		if rec, ok := p.Errors().Last(); ok {
			pterm.Error.Printf("%s failed [%s]: %s\n", rec.Operation, rec.Code, rec.Message)
		}
		return err
	}
	return nil
}

var lsComponentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List components",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := &gqlclient.ComponentFilter{Status: lsStatus, Tag: lsTag, Search: lsSearch}
		return withClient(cmd.Context(), func(c *gqlclient.Client) error {
			comps, err := c.GetComponents(cmd.Context(), lsShape(), filter)
			if err != nil {
				return err
			}
			return renderComponents(comps)
		})
	},
}

var lsComponentCmd = &cobra.Command{
	Use:   "component <id>",
	Short: "Show one component",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(c *gqlclient.Client) error {
			comp, err := c.GetComponent(cmd.Context(), lsShape(), args[0])
			if err != nil {
				return err
			}
			return renderComponents([]gqlclient.Component{*comp})
		})
	},
}

var lsADRsCmd = &cobra.Command{
	Use:   "adrs",
	Short: "List architecture decision records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(c *gqlclient.Client) error {
			adrs, err := c.GetADRs(cmd.Context(), lsShape(), lsStatus)
			if err != nil {
				return err
			}
			data := pterm.TableData{{"ID", "Title", "Status", "Owners", "Components"}}
			for _, a := range adrs {
				data = append(data, []string{a.ID, a.Title, a.Status, owners(a), strconv.Itoa(len(a.ComponentIDs))})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		})
	},
}

var lsEnvironmentsCmd = &cobra.Command{
	Use:   "environments",
	Short: "List environments",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(c *gqlclient.Client) error {
			envs, err := c.GetEnvironments(cmd.Context())
			if err != nil {
				return err
			}
			data := pterm.TableData{{"ID", "Name", "Description"}}
			for _, e := range envs {
				data = append(data, []string{e.ID, e.Name, deref(e.Description)})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		})
	},
}

var lsTeamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List teams",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(c *gqlclient.Client) error {
			teams, err := c.GetTeams(cmd.Context())
			if err != nil {
				return err
			}
			data := pterm.TableData{{"ID", "Name", "Description"}}
			for _, t := range teams {
				data = append(data, []string{t.ID, t.Name, deref(t.Description)})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		})
	},
}

func renderComponents(comps []gqlclient.Component) error {
	header := []string{"ID", "Name", "Status", "Tags"}
	if lsDetail {
		header = append(header, "Team", "Instances", "ADRs")
	}
	data := pterm.TableData{header}
	for _, c := range comps {
		row := []string{c.ID, c.Name, c.Status, strings.Join(c.Tags, ",")}
		if lsDetail {
			team := "-"
			if c.Team != nil {
				team = c.Team.Name
			}
			total := 0
			if c.TotalInstances != nil {
				total = *c.TotalInstances
			}
			row = append(row, team, strconv.Itoa(total), strconv.Itoa(len(c.ADRs)))
		}
		data = append(data, row)
	}
	if len(comps) == 0 {
		pterm.Info.Println("No components")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func owners(a gqlclient.ADR) string {
	var names []string
	for _, p := range a.Participants {
		if p.Role != gqlclient.RoleOwner {
			continue
		}
		if p.User != nil {
			names = append(names, p.User.Name)
		} else {
			names = append(names, fmt.Sprintf("#%s", p.UserID))
		}
	}
	return strings.Join(names, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
