package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytcurate/ytcurate/internal"
)

// categoriesCmd lists the configured learning categories
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage learning categories",
	Example: `  # List configured categories
  ytcurate categories

  # Add a category
  ytcurate categories add rust --name "Rust" --description "Rust language content"

  # Remove a category
  ytcurate categories remove rust`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		categories := app.Categories().All()
		if len(categories) == 0 {
			fmt.Println("No categories configured.")
			return nil
		}

		for _, c := range categories {
			fmt.Printf("%s (%s)\n", c.Name, c.ID)
			if c.Description != "" {
				fmt.Printf("  %s\n", c.Description)
			}
			if c.Criteria != "" {
				fmt.Printf("  Criteria: %s\n", c.Criteria)
			}
		}
		return nil
	},
}

// categoriesAddCmd adds a category to the store
var categoriesAddCmd = &cobra.Command{
	Use:   "add [id]",
	Short: "Add a learning category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		criteria, _ := cmd.Flags().GetString("criteria")
		keywords, _ := cmd.Flags().GetStringSlice("keyword")

		if name == "" {
			name = args[0]
		}

		category := internal.Category{
			ID:          internal.CategoryID(args[0]),
			Name:        name,
			Description: description,
			Criteria:    criteria,
			Keywords:    keywords,
		}
		if err := app.Categories().Add(category); err != nil {
			return err
		}

		if !config.Quiet {
			fmt.Printf("Added category %s\n", category.ID)
		}
		return nil
	},
}

// categoriesRemoveCmd removes a category from the store
var categoriesRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a learning category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}

		if err := app.Categories().Remove(internal.CategoryID(args[0])); err != nil {
			return err
		}

		if !config.Quiet {
			fmt.Printf("Removed category %s\n", args[0])
		}
		return nil
	},
}

func init() {
	categoriesAddCmd.Flags().String("name", "", "Display name")
	categoriesAddCmd.Flags().String("description", "", "What this category covers")
	categoriesAddCmd.Flags().String("criteria", "", "What makes a video match this category")
	categoriesAddCmd.Flags().StringSlice("keyword", nil, "Keyword associated with the category (repeatable)")

	categoriesCmd.AddCommand(categoriesAddCmd)
	categoriesCmd.AddCommand(categoriesRemoveCmd)
	rootCmd.AddCommand(categoriesCmd)
}
