package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/raine/category-admin/config"
	"github.com/raine/category-admin/internal/catalog"
	"github.com/raine/category-admin/internal/tree"
)

type stdoutNotifier struct{}

func (stdoutNotifier) Notify(level tree.Level, msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

type noConfirm struct{}

func (noConfirm) Confirm(ctx context.Context, prompt string) (bool, error) {
	return false, nil
}

func main() {
	mainOnly := flag.Bool("main", false, "List main categories only")
	expandAll := flag.Bool("expand", false, "Expand every main category")
	rawJSON := flag.Bool("json", false, "Output raw JSON only")
	flag.Parse()

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := catalog.NewClient(catalog.ClientOpts{BaseURL: cfg.APIBaseURL, Token: cfg.APIToken, Timeout: cfg.APITimeout})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *rawJSON {
		var categories []catalog.Category
		if *mainOnly {
			categories, err = client.MainCategories(ctx)
		} else {
			categories, err = client.Hierarchy(ctx)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		jsonBytes, _ := json.MarshalIndent(categories, "", "  ")
		fmt.Println(string(jsonBytes))
		return
	}

	operator := &tree.Operator{Name: cfg.OperatorName, Role: cfg.OperatorRole}
	view := tree.New(client, operator, stdoutNotifier{}, noConfirm{})

	if *mainOnly {
		mains, err := view.LoadMainCategories(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for i, c := range mains {
			fmt.Printf("%d. %s (%s) - %d subcategories, %d services\n", i+1, c.Name, c.ID, c.SubCategoriesCount, c.ServicesCount)
		}
		return
	}

	roots, err := view.LoadHierarchy(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *expandAll {
		for _, c := range roots {
			if c.HasChildren {
				view.ToggleExpansion(c.ID)
			}
		}
	}
	fmt.Println(view.Render())
}
