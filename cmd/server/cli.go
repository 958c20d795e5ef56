package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/apiclient"
	"github.com/kakomon/admin/internal/auth"
	"github.com/kakomon/admin/internal/catalog"
	"github.com/kakomon/admin/internal/config"
	"github.com/kakomon/admin/internal/models"
	"github.com/kakomon/admin/internal/server"
)

// session is what every CLI command starts from: config, logger, client and
// the restored file session.
type session struct {
	cfg     *config.Config
	log     *zap.Logger
	client  *apiclient.Client
	manager *auth.Manager
}

func openSession(load loader) (*session, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	log := cliLogger(cfg)
	m := auth.NewManager(auth.NewFileStore(cfg.Session.File), log)
	m.Bootstrap()
	return &session{
		cfg:     cfg,
		log:     log,
		client:  apiclient.New(server.ClientOptions(cfg), log, nil),
		manager: m,
	}, nil
}

// close flushes buffered log entries.
func (s *session) close() { _ = s.log.Sync() }

func describe(u *models.User) string {
	if u == nil {
		return "signed out"
	}
	s := fmt.Sprintf("%s (%s)", u.Username, u.Role)
	if u.Email != "" {
		s += " <" + u.Email + ">"
	}
	return s
}

// ── Catalogue ─────────────────────────────────────────

func catalogCMD(load loader) *cobra.Command {
	var f catalog.Filter
	var cmd = &cobra.Command{
		Use:   "catalog",
		Short: "List documents grouped by school and year",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(load)
			if err != nil {
				return err
			}
			defer s.close()
			docs, err := s.client.ListDocuments(cmd.Context())
			if err != nil {
				return errors.New(apiclient.UserMessage(err, "PDF一覧の取得に失敗しました"))
			}
			printTree(cmd.OutOrStdout(), catalog.Group(docs, f), len(docs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.Search, "search", "q", "", "match school or filename")
	cmd.Flags().StringVar(&f.Subject, "subject", "", "subject code (math, japanese, science, social)")
	cmd.Flags().StringVar(&f.Year, "year", "", "year, or "+models.UnknownYear)
	return cmd
}

func printTree(w io.Writer, tree catalog.Tree, total int) {
	fmt.Fprintf(w, "%d / %d件\n", tree.Total, total)
	for _, s := range tree.Schools {
		st := catalog.Stats(s)
		fmt.Fprintf(w, "%s (%d件) 教科: %s / 年度: %s\n", s.Name, s.Total, st.Subjects, st.YearRange)
		for _, y := range s.Years {
			fmt.Fprintf(w, "  %s (%d件)\n", y.Year, len(y.Documents))
			for _, d := range y.Documents {
				fmt.Fprintf(w, "    [%d] %s  %s\n", d.ID, d.Filename, models.SubjectLabel(d.Subject))
			}
		}
	}
}

func questionsCMD(load loader) *cobra.Command {
	var pdfID int64
	var cmd = &cobra.Command{
		Use:   "questions",
		Short: "List registered questions, optionally for one document",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(load)
			if err != nil {
				return err
			}
			defer s.close()

			var qs []models.Question
			if pdfID > 0 {
				qs, err = s.client.ListQuestionsByDocument(cmd.Context(), pdfID)
			} else {
				qs, err = s.client.ListQuestions(cmd.Context())
			}
			if err != nil {
				return errors.New(apiclient.UserMessage(err, "問題の取得に失敗しました"))
			}
			types, err := s.client.ListQuestionTypes(cmd.Context())
			if err != nil {
				return errors.New(apiclient.UserMessage(err, "問題タイプの取得に失敗しました"))
			}
			names := make(map[int64]string, len(types))
			for _, qt := range types {
				names[qt.ID] = qt.Name
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d件\n", len(qs))
			for _, q := range qs {
				typeName, ok := names[q.QuestionTypeID]
				if !ok {
					typeName = fmt.Sprintf("type %d", q.QuestionTypeID)
				}
				fmt.Fprintf(out, "[%d] PDF %d 問%s (%s) %s\n", q.ID, q.PDFID, q.QuestionNumber, typeName, firstLine(q.QuestionText))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&pdfID, "pdf", 0, "only questions of this PDF id")
	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid PDF id %q", arg)
	}
	return id, nil
}

func analyzeCMD(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <pdf-id>",
		Short: "Run the AI analysis for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(load)
			if err != nil {
				return err
			}
			defer s.close()
			res, err := s.client.AnalyzeDocument(cmd.Context(), id)
			if err != nil {
				return errors.New(apiclient.UserMessage(err, "AI分析に失敗しました"))
			}
			if !res.Success {
				return fmt.Errorf("分析に失敗しました: %s", res.Error)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Analysis)
			if res.PagesConverted > 0 {
				fmt.Fprintf(out, "\n変換ページ数: %d / ファイルサイズ: %d bytes\n", res.PagesConverted, res.PDFFileSize)
			}
			return nil
		},
	}
}

func uploadCMD(load loader) *cobra.Command {
	var meta models.DocumentMeta
	var source string
	var cmd = &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(load)
			if err != nil {
				return err
			}
			defer s.close()
			if !s.manager.User().IsAdmin() {
				return errors.New("admin login required")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}

			doc, err := s.client.UploadDocument(cmd.Context(), apiclient.Upload{
				Filename: filepath.Base(args[0]),
				Size:     info.Size(),
				Content:  f,
				URL:      source,
				Meta:     meta,
			})
			if err != nil {
				return errors.New(apiclient.UserMessage(err, "アップロードに失敗しました。"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded [%d] %s\n", doc.ID, doc.Filename)
			return nil
		},
	}
	cmd.Flags().StringVar(&meta.School, "school", "", "school name")
	cmd.Flags().StringVar(&meta.Subject, "subject", "", "subject code")
	cmd.Flags().IntVar(&meta.Year, "year", 0, "exam year")
	cmd.Flags().StringVar(&source, "url", "", "original URL of the PDF")
	return cmd
}

// ── Session ───────────────────────────────────────────

func loginCMD(load loader) *cobra.Command {
	var username, password string
	var cmd = &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(load)
			if err != nil {
				return err
			}
			defer s.close()
			if !s.manager.Login(username, password) {
				return errors.New("invalid username or password")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged in as", describe(s.manager.User()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func guestCMD(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Continue as guest",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(load)
			if err != nil {
				return err
			}
			defer s.close()
			s.manager.LoginAsGuest()
			fmt.Fprintln(cmd.OutOrStdout(), "logged in as", describe(s.manager.User()))
			return nil
		},
	}
}

func logoutCMD(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(load)
			if err != nil {
				return err
			}
			defer s.close()
			s.manager.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func whoamiCMD(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(load)
			if err != nil {
				return err
			}
			defer s.close()
			fmt.Fprintln(cmd.OutOrStdout(), describe(s.manager.User()))
			return nil
		},
	}
}
