package main

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yuanying/epubreader/internal/cover"
	"github.com/yuanying/epubreader/internal/markup"
	"github.com/yuanying/epubreader/internal/speech"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show book metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}
			r, err := openBook(args[0], opts)
			if err != nil {
				return err
			}
			defer r.Close()

			coverPath := r.CoverPath()
			if coverPath == "" {
				coverPath = "-"
			}
			rows := [][]string{
				{"Title", r.Title()},
				{"Author", r.Author()},
				{"Cover", coverPath},
				{"Chapters", strconv.Itoa(r.ChapterCount())},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(infoColumns, rows, shouldColorize(out)))
			return nil
		},
	}
}

func newChaptersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chapters <file>",
		Short: "List chapters in reading order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}
			r, err := openBook(args[0], opts)
			if err != nil {
				return err
			}
			defer r.Close()

			rows := make([][]string, 0, r.ChapterCount())
			for i, c := range r.Chapters() {
				size := "-"
				if n, ok := r.ChapterSize(i); ok {
					size = humanize.IBytes(n)
				}
				rows = append(rows, []string{strconv.Itoa(i), c.ID, c.Title, chapterKind(c.Title), size, c.Href})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(chapterColumns, rows, shouldColorize(out)))
			return nil
		},
	}
}

// chapterKind labels a chapter title as front matter or story content.
func chapterKind(title string) string {
	switch {
	case speech.IsContentTitle(title):
		return "content"
	case speech.IsFrontMatterTitle(title):
		return "front"
	}
	return ""
}

func newTextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "text <file> [index]",
		Short: "Print a chapter as plain text",
		Long: `Print one chapter as plain text. Without an index the first chapter
that looks like story content is printed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}
			r, err := openBook(args[0], opts)
			if err != nil {
				return err
			}
			defer r.Close()

			index := speech.FirstContentChapter(r.ChapterTitles())
			if len(args) == 2 {
				index, err = strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid chapter index %q: %w", args[1], err)
				}
			}
			chapter, ok := r.Chapter(index)
			if !ok {
				return fmt.Errorf("chapter index %d out of range (book has %d chapters)", index, r.ChapterCount())
			}
			opts.Logger.Debug("printing chapter", "index", index, "title", chapter.Title)

			out := cmd.OutOrStdout()
			sentences, _ := cmd.Flags().GetBool("sentences")
			if !sentences {
				text, _ := r.ChapterText(index)
				fmt.Fprintln(out, text)
				return nil
			}

			lines, err := speech.SentencesFromHTML(markup.NewGoquery(), chapter.Content)
			if err != nil {
				return fmt.Errorf("failed to split chapter %d: %w", index, err)
			}
			skip := opts.Config.Speech.SkipFrontMatter
			if cmd.Flags().Changed("skip-front-matter") {
				skip, _ = cmd.Flags().GetBool("skip-front-matter")
			}
			if skip {
				lines = speech.SkipFrontMatter(lines)
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().Bool("sentences", false, "Print one sentence per line")
	cmd.Flags().Bool("skip-front-matter", false, "Drop leading front matter such as copyright and dedication lines (with --sentences)")
	return cmd
}

func newCoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cover <file>",
		Short: "Export the cover image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}
			r, err := openBook(args[0], opts)
			if err != nil {
				return err
			}
			defer r.Close()

			rc, ok := r.CoverImage()
			if !ok {
				if p := r.CoverPath(); p != "" {
					return fmt.Errorf("cover %s is declared but missing from the archive", p)
				}
				return fmt.Errorf("%s has no cover image", args[0])
			}
			defer rc.Close()

			thumbnail, _ := cmd.Flags().GetBool("thumbnail")
			var data []byte
			ext := path.Ext(r.CoverPath())
			if thumbnail {
				th := cover.NewThumbnailer(cover.Options{
					MaxWidth:    opts.Config.Cover.MaxWidth,
					JPEGQuality: opts.Config.Cover.JPEGQuality,
				})
				img, err := th.Thumbnail(rc)
				if err != nil {
					return err
				}
				data, ext = img.Data, img.Extension()
			} else {
				data, err = io.ReadAll(rc)
				if err != nil {
					return fmt.Errorf("failed to read cover: %w", err)
				}
			}

			outputPath, _ := cmd.Flags().GetString("output")
			if outputPath == "" {
				outputPath = defaultCoverPath(args[0], ext)
			}
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write cover: %w", err)
			}

			opts.Logger.Info("wrote cover", "path", outputPath, "size", humanize.Bytes(uint64(len(data))))
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file path (default: <book>-cover.<ext> next to the input)")
	cmd.Flags().Bool("thumbnail", false, "Scale the cover down to the configured maximum width")
	return cmd
}

// defaultCoverPath places the cover next to the book as <name>-cover<ext>.
func defaultCoverPath(inputPath, ext string) string {
	if ext == "" {
		ext = ".img"
	}
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return base + "-cover" + strings.ToLower(ext)
}
