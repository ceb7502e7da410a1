package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/vonshlovens/flownotes/internal/foldertree"
	"github.com/vonshlovens/flownotes/internal/note"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			notes, err := e.store.ListNotes(ctx)
			if err != nil {
				return fmt.Errorf("failed to list notes: %w", err)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tUPDATED")
			for _, m := range notes {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.Title, m.UpdatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

func newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <title>",
		Short: "Create a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			sess := e.newSession()
			defer sess.Close(ctx)

			n, err := sess.Create(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", n.ID, n.Title)
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			sess := e.newSession()
			defer sess.Close(ctx)

			if err := sess.Refresh(ctx); err != nil {
				return err
			}
			if err := sess.Select(ctx, args[0]); err != nil {
				return err
			}

			if markdown {
				md, err := sess.Export()
				if err != nil {
					return err
				}
				fmt.Println(md)
				return nil
			}

			n := sess.Open()
			fmt.Println(strings.Join(sess.Breadcrumb(), " / "))
			fmt.Printf("# %s\n\n", n.Title)
			printBlocks(note.SortBlocks(n.Blocks), 0)
			return nil
		},
	}

	cmd.Flags().BoolVar(&markdown, "markdown", false, "print the markdown export instead of typed blocks")
	return cmd
}

func printBlocks(blocks []note.Block, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, b := range blocks {
		switch b.Type {
		case note.BlockTodo:
			mark := " "
			if b.Checked != nil && *b.Checked {
				mark = "x"
			}
			fmt.Printf("%s[%s] %s\n", indent, mark, b.Content)
		case note.BlockList:
			fmt.Printf("%s- %s\n", indent, b.Content)
		case note.BlockDivider:
			fmt.Printf("%s---\n", indent)
		case note.BlockImage, note.BlockPDF:
			path := ""
			if b.FilePath != nil {
				path = *b.FilePath
			}
			fmt.Printf("%s[%s] %s %s\n", indent, b.Type, b.Content, path)
		default:
			fmt.Printf("%s%s: %s\n", indent, b.Type, b.Content)
		}
		printBlocks(note.SortBlocks(b.Children), depth+1)
	}
}

func editCmd() *cobra.Command {
	var (
		title      string
		paragraphs []string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Rename a note or append paragraphs to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			sess := e.newSession()
			if err := sess.Select(ctx, args[0]); err != nil {
				sess.Close(ctx)
				return err
			}

			if cmd.Flags().Changed("title") {
				if err := sess.EditTitle(title); err != nil {
					sess.Close(ctx)
					return err
				}
				if err := sess.BlurTitle(ctx); err != nil {
					sess.Close(ctx)
					return err
				}
			}

			if len(paragraphs) > 0 {
				var sb strings.Builder
				sb.WriteString(sess.Draft())
				for _, text := range paragraphs {
					sb.WriteString("<p>")
					sb.WriteString(html.EscapeString(text))
					sb.WriteString("</p>")
				}
				if err := sess.EditBody(sb.String()); err != nil {
					sess.Close(ctx)
					return err
				}
			}

			// Close flushes the pending autosave
			if err := sess.Close(ctx); err != nil {
				return fmt.Errorf("failed to save note: %w", err)
			}

			n := sess.Open()
			fmt.Printf("%s\t%s\t%d blocks\n", n.ID, n.Title, len(n.Blocks))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringArrayVar(&paragraphs, "append", nil, "paragraph to append (repeatable)")
	return cmd
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.store.DeleteNote(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete note: %w", err)
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show configured folders and the notes filed in them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			sess := e.newSession()
			defer sess.Close(ctx)

			if err := sess.Refresh(ctx); err != nil {
				return err
			}

			foldertree.Walk(sess.Tree(), func(it *foldertree.Item, depth int) {
				indent := strings.Repeat("  ", depth)
				if it.Type == foldertree.TypeFolder {
					fmt.Printf("%s%s/\n", indent, it.Name)
					return
				}
				fmt.Printf("%s%s  (%s)\n", indent, it.Name, it.ID)
			})
			return nil
		},
	}
}

func paletteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "palette [query]",
		Short: "List insertable block types",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, entry := range note.FilterPalette(query) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Type, entry.Label, strings.Join(entry.Keywords, ", "))
			}
			return tw.Flush()
		},
	}
}
