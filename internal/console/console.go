package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/raine/category-admin/internal/storage"
	"github.com/raine/category-admin/internal/tree"
	"github.com/rs/zerolog/log"
)

const historyLimit = 20

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
)

// Console is the interactive command loop driving a tree view.
type Console struct {
	view    *tree.View
	dialogs Dialogs
	journal storage.Journal
	in      io.Reader
	out     io.Writer
}

func New(view *tree.View, dialogs Dialogs, journal storage.Journal, in io.Reader, out io.Writer) *Console {
	return &Console{
		view:    view,
		dialogs: dialogs,
		journal: journal,
		in:      in,
		out:     out,
	}
}

// NewNotifier returns a tree.Notifier printing toasts to out.
func NewNotifier(out io.Writer) tree.Notifier {
	return &toastNotifier{out: out}
}

func (c *Console) notify(level tree.Level, msg string) {
	NewNotifier(c.out).Notify(level, msg)
}

type toastNotifier struct {
	out io.Writer
}

func (n *toastNotifier) Notify(level tree.Level, msg string) {
	switch level {
	case tree.LevelSuccess:
		fmt.Fprintln(n.out, successStyle.Render("✓ "+msg))
	case tree.LevelError:
		fmt.Fprintln(n.out, errorStyle.Render("✗ "+msg))
	default:
		fmt.Fprintln(n.out, infoStyle.Render("ℹ "+msg))
	}
}

// Run loads the tree and processes commands until the input ends, the
// operator quits or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := c.view.Refresh(ctx); err != nil {
		if errors.Is(err, tree.ErrNotAdmin) {
			return err
		}
		log.Warn().Err(err).Msg("initial category load failed")
	}
	c.printTree()

	// The reader only reads when asked for the next command. While a
	// command runs its dialogs own the input.
	lines := make(chan string)
	next := make(chan struct{})
	go func() {
		defer close(lines)
		for {
			select {
			case <-next:
			case <-ctx.Done():
				return
			}
			line, err := readLine(c.in)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Error().Err(err).Msg("failed to read command")
				}
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.out, promptStyle.Render("categories> "))
		select {
		case next <- struct{}{}:
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				return nil
			}
			if quit := c.Execute(ctx, line); quit {
				return nil
			}
		}
	}
}

// Execute runs one command line. It returns true when the operator asked
// to quit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	cmd, args := parseCommand(line)
	switch cmd {
	case "":
	case "help", "?":
		fmt.Fprintln(c.out, helpText())
	case "tree", "ls":
		c.printTree()
	case "toggle", "t":
		c.toggle(args)
	case "new", "create":
		c.create(ctx)
	case "edit", "e":
		c.edit(ctx, args)
	case "delete", "rm":
		c.delete(ctx, args)
	case "refresh", "r":
		if err := c.view.Refresh(ctx); err != nil {
			c.notify(tree.LevelError, "Failed to refresh categories")
		}
		c.printTree()
	case "history":
		c.history(args)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command %q. Type \"help\" for a list of commands.\n", cmd)
	}
	return false
}

func (c *Console) printTree() {
	fmt.Fprintln(c.out, c.view.Render())
}

func (c *Console) toggle(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: toggle <id>")
		return
	}
	c.view.ToggleExpansion(args[0])
	c.printTree()
}

func (c *Console) create(ctx context.Context) {
	c.view.OpenCreate()
	form := c.view.Form()
	for {
		var err error
		form, err = c.dialogs.CategoryForm(ctx, "New category", form, c.view.ParentOptions())
		if err != nil {
			c.view.CloseDialog()
			c.reportDialogError(err)
			return
		}
		err = c.view.CreateCategory(ctx, form)
		if err == nil {
			c.printTree()
			return
		}
		if !c.retry(err) {
			c.view.CloseDialog()
			return
		}
		// The dialog stays open with the entered values.
		form = c.view.Form()
	}
}

func (c *Console) edit(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: edit <id>")
		return
	}
	id := args[0]
	form, err := c.view.OpenEdit(id)
	if err != nil {
		c.notify(tree.LevelError, err.Error())
		return
	}
	for {
		form, err = c.dialogs.CategoryForm(ctx, "Edit category", form, c.view.ParentOptions())
		if err != nil {
			c.view.CloseDialog()
			c.reportDialogError(err)
			return
		}
		err = c.view.UpdateCategory(ctx, id, form)
		if err == nil {
			c.printTree()
			return
		}
		if !c.retry(err) {
			c.view.CloseDialog()
			return
		}
		form = c.view.Form()
	}
}

func (c *Console) delete(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: delete <id>")
		return
	}
	err := c.view.DeleteCategory(ctx, args[0])
	switch {
	case err == nil:
		c.printTree()
	case errors.Is(err, tree.ErrDeleteCancelled):
		c.notify(tree.LevelInfo, "Delete cancelled")
	}
}

// retry reports whether the dialog should be shown again after err. The
// view has already notified the operator.
func (c *Console) retry(err error) bool {
	if errors.Is(err, tree.ErrNotAdmin) || errors.Is(err, tree.ErrNoSelection) || errors.Is(err, tree.ErrPending) {
		return false
	}
	return true
}

func (c *Console) reportDialogError(err error) {
	if errors.Is(err, ErrDialogAborted) {
		c.notify(tree.LevelInfo, "Cancelled")
		return
	}
	log.Error().Err(err).Msg("dialog failed")
	c.notify(tree.LevelError, "Dialog failed: "+err.Error())
}

func (c *Console) history(args []string) {
	if c.journal == nil {
		fmt.Fprintln(c.out, "History is not available.")
		return
	}
	limit := historyLimit
	if len(args) == 1 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}

	mutations, err := c.journal.RecentMutations(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to read mutation history")
		c.notify(tree.LevelError, "Failed to read history")
		return
	}
	if len(mutations) == 0 {
		fmt.Fprintln(c.out, infoStyle.Render("No changes recorded yet."))
		return
	}
	for _, m := range mutations {
		fmt.Fprintln(c.out, formatMutation(m))
	}
}

func formatMutation(m storage.Mutation) string {
	target := m.CategoryName
	if m.CategoryID != "" {
		target = fmt.Sprintf("%s (%s)", m.CategoryName, m.CategoryID)
	}
	line := fmt.Sprintf("%s  %-8s %-6s %-9s %s",
		m.CreatedAt.Format("2006-01-02 15:04:05"), m.Operator, m.Op, m.Outcome, strings.TrimSpace(target))
	if m.Message != "" {
		line += "  " + infoStyle.Render(m.Message)
	}
	return line
}

func helpText() string {
	return formatText(`
		Commands:
		  tree, ls          show the category tree
		  toggle <id>       expand or collapse a main category
		  new               create a category
		  edit <id>         edit a category
		  delete <id>       delete a category (asks for confirmation)
		  refresh           reload categories from the server
		  history [n]       show the last n changes made from this tool
		  quit              exit
	`)
}
