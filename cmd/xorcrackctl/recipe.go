package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/RowanDark/xorcrack/internal/cipher"
	"github.com/RowanDark/xorcrack/internal/config"
)

// recipes opens the recipe store of cfg.
func (c *cli) recipes(cfg config.Config) (*cipher.RecipeManager, bool) {
	rm := cipher.NewRecipeManager(cfg.RecipesDir)
	if err := rm.LoadRecipes(); err != nil {
		fmt.Fprintf(c.stderr, "load recipes: %v\n", err)
		return nil, false
	}
	return rm, true
}

func (c *cli) runRecipeSave(args []string) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	fs := c.newFlagSet("recipe save")
	name := fs.String("name", "", "recipe name")
	opSpec := fs.String("op", "", "comma separated operations, e.g. hex_decode,base64_encode")
	description := fs.String("description", "", "free text description")
	tags := fs.String("tags", "", "comma separated tags")
	reversible := fs.Bool("reversible", false, "allow the recipe to run with --reverse")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*name) == "" || *opSpec == "" {
		fmt.Fprintln(c.stderr, "--name and --op are required")
		return 2
	}
	ops, err := parseOps(*opSpec)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 2
	}
	for _, op := range ops {
		if _, exists := cipher.GetOperation(op.Name); !exists {
			fmt.Fprintf(c.stderr, "unknown operation: %s\n", op.Name)
			return 2
		}
	}

	rm, ok := c.recipes(cfg)
	if !ok {
		return 1
	}
	recipe := &cipher.Recipe{
		Name:        *name,
		Description: *description,
		Pipeline:    cipher.Pipeline{Operations: ops, Reversible: *reversible},
	}
	for _, tag := range strings.Split(*tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			recipe.Tags = append(recipe.Tags, tag)
		}
	}
	if err := rm.SaveRecipe(recipe); err != nil {
		fmt.Fprintf(c.stderr, "save recipe: %v\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "saved recipe %s\n", recipe.Name)
	return 0
}

func (c *cli) runRecipeList(args []string) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	fs := c.newFlagSet("recipe list")
	query := fs.String("search", "", "only list recipes whose name, description or tags match")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rm, ok := c.recipes(cfg)
	if !ok {
		return 1
	}
	list := rm.ListRecipes()
	if *query != "" {
		list = rm.SearchRecipes(*query)
	}
	if len(list) == 0 {
		fmt.Fprintln(c.stdout, "no recipes")
		return 0
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tOPERATIONS\tDESCRIPTION")
	for _, r := range list {
		names := make([]string, len(r.Pipeline.Operations))
		for i, op := range r.Pipeline.Operations {
			names[i] = op.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, strings.Join(names, ","), r.Description)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(c.stderr, "write: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) runRecipeDelete(args []string) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	fs := c.newFlagSet("recipe delete")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "recipe delete requires a recipe name")
		return 2
	}

	rm, ok := c.recipes(cfg)
	if !ok {
		return 1
	}
	if _, found := rm.GetRecipe(fs.Arg(0)); !found {
		fmt.Fprintf(c.stderr, "recipe %q not found\n", fs.Arg(0))
		return 1
	}
	if err := rm.DeleteRecipe(fs.Arg(0)); err != nil {
		fmt.Fprintf(c.stderr, "delete recipe: %v\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "deleted recipe %s\n", fs.Arg(0))
	return 0
}
