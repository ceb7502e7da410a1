package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vonshlovens/flownotes/internal/pdf"
)

func pdfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Manage PDF documents and their annotations",
	}

	cmd.AddCommand(
		pdfImportCmd(),
		pdfListCmd(),
		pdfShowCmd(),
		pdfAnnotateCmd(),
		pdfDrawCmd(),
		pdfRemoveCmd(),
	)
	return cmd
}

func pdfImportCmd() *cobra.Command {
	var (
		name  string
		pages int
	)

	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Register a PDF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(path)
			}

			doc, err := e.store.ImportPDF(ctx, name, path, pages)
			if err != nil {
				return fmt.Errorf("failed to import pdf: %w", err)
			}
			fmt.Printf("%s\t%s\n", doc.ID, doc.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (default file name)")
	cmd.Flags().IntVar(&pages, "pages", 0, "page count, 0 if unknown")
	return cmd
}

func pdfListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List PDF documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			docs, err := e.store.ListPDFs(ctx)
			if err != nil {
				return fmt.Errorf("failed to list pdfs: %w", err)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPAGES\tANNOTATIONS\tUPDATED")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", d.ID, d.Name, d.Pages, len(d.Annotations), d.UpdatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

func pdfShowCmd() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a document and its annotations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			doc, err := e.store.LoadPDF(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load pdf: %w", err)
			}

			fmt.Printf("%s (%s)\n%s\n\n", doc.Name, doc.ID, doc.Path)

			annotations := doc.Annotations
			if page > 0 {
				annotations = pdf.NewOverlay(doc).ForPage(page)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tPAGE\tRECT\tCONTENT")
			for _, a := range annotations {
				content := ""
				if a.Content != nil {
					content = *a.Content
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%v\t%s\n", a.ID, a.Type, a.Page, a.Rect, content)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "only show annotations on this page")
	return cmd
}

func pdfAnnotateCmd() *cobra.Command {
	var (
		kind    string
		page    int
		rect    string
		content string
		color   string
	)

	cmd := &cobra.Command{
		Use:   "annotate <id>",
		Short: "Add a highlight or comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRect(rect)
			if err != nil {
				return err
			}

			a := pdf.Annotation{
				ID:   pdf.NewAnnotationID(),
				Type: pdf.AnnotationType(kind),
				Page: page,
				Rect: r,
			}
			if content != "" {
				a.Content = &content
			}
			if color != "" {
				a.Color = &color
			}

			return saveAnnotation(args[0], a)
		},
	}

	cmd.Flags().StringVar(&kind, "type", string(pdf.Highlight), "highlight or comment")
	cmd.Flags().IntVar(&page, "page", 1, "1-based page number")
	cmd.Flags().StringVar(&rect, "rect", "0,0,0,0", "x,y,width,height")
	cmd.Flags().StringVar(&content, "content", "", "comment text")
	cmd.Flags().StringVar(&color, "color", "", "display color")
	return cmd
}

func pdfDrawCmd() *cobra.Command {
	var (
		page   int
		points string
		color  string
	)

	cmd := &cobra.Command{
		Use:   "draw <id>",
		Short: "Add a freehand drawing from a list of points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var stroke pdf.Stroke
			stroke.Begin(page, color)
			for _, field := range strings.Fields(points) {
				xy, err := parseFloats(field, 2)
				if err != nil {
					return fmt.Errorf("invalid point %q: %w", field, err)
				}
				stroke.Point(xy[0], xy[1])
			}

			a, ok := stroke.Release()
			if !ok {
				return fmt.Errorf("a drawing needs at least two points")
			}
			return saveAnnotation(args[0], *a)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "1-based page number")
	cmd.Flags().StringVar(&points, "points", "", `space separated "x,y" samples`)
	cmd.Flags().StringVar(&color, "color", "", "stroke color")
	return cmd
}

// saveAnnotation checks a against the document before storing it
func saveAnnotation(pdfID string, a pdf.Annotation) error {
	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	doc, err := e.store.LoadPDF(ctx, pdfID)
	if err != nil {
		return fmt.Errorf("failed to load pdf: %w", err)
	}
	if err := pdf.NewOverlay(doc).Add(a); err != nil {
		return err
	}

	if err := e.store.SavePDFAnnotation(ctx, pdfID, a); err != nil {
		return fmt.Errorf("failed to save annotation: %w", err)
	}
	fmt.Printf("%s\t%s\tpage %d\n", a.ID, a.Type, a.Page)
	return nil
}

func pdfRemoveCmd() *cobra.Command {
	var annotationID string

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a document, or one of its annotations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if annotationID == "" {
				if err := e.store.DeletePDF(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to delete pdf: %w", err)
				}
				fmt.Printf("Deleted %s\n", args[0])
				return nil
			}

			doc, err := e.store.LoadPDF(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load pdf: %w", err)
			}
			overlay := pdf.NewOverlay(doc)
			if !overlay.Remove(annotationID) {
				return fmt.Errorf("annotation %s not found on %s", annotationID, args[0])
			}

			updated := overlay.Document()
			updated.UpdatedAt = time.Now().UTC()
			if err := e.store.SavePDF(ctx, updated); err != nil {
				return fmt.Errorf("failed to save pdf: %w", err)
			}
			fmt.Printf("Deleted annotation %s\n", annotationID)
			return nil
		},
	}

	cmd.Flags().StringVar(&annotationID, "annotation", "", "remove only this annotation")
	return cmd
}

func parseRect(s string) (pdf.Rect, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return pdf.Rect{}, fmt.Errorf("invalid rect %q: %w", s, err)
	}
	return pdf.Rect{v[0], v[1], v[2], v[3]}, nil
}

// parseFloats splits a comma separated list of exactly n numbers
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma separated numbers", n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
