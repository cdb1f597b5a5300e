// llmdeploy-tui is a terminal front-end for launching deployments: pick a
// cached model, a quantization scheme and a context length, preview the
// container command, then hand off to the regular deployment session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	cliconfig "github.com/llmdeploy/llmdeploy/internal/cli/config"
	"github.com/llmdeploy/llmdeploy/internal/container"
	"github.com/llmdeploy/llmdeploy/internal/logging"
	"github.com/llmdeploy/llmdeploy/internal/model"
	"github.com/llmdeploy/llmdeploy/internal/session"
	"github.com/llmdeploy/llmdeploy/internal/shell"
	"github.com/llmdeploy/llmdeploy/internal/slurm"
)

var quantizations = []string{"None", "bitsandbytes", "GPTQ"}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	previewStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	hintStyle    = lipgloss.NewStyle().Faint(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type modelItem string

func (m modelItem) Title() string       { return string(m) }
func (m modelItem) Description() string { return "" }
func (m modelItem) FilterValue() string { return string(m) }

type launcher struct {
	cfg      *cliconfig.Config
	modelDir string

	models    list.Model
	quantIdx  int
	ctxInput  textinput.Model
	focusCtx  bool
	errorText string

	// Filled in when the operator confirms.
	launch *launchChoice
}

type launchChoice struct {
	modelName     string
	quantization  string
	contextLength int
}

func newLauncher(cfg *cliconfig.Config, modelDir string, names []string) launcher {
	items := make([]list.Item, len(names))
	for i, n := range names {
		items[i] = modelItem(n)
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	models := list.New(items, delegate, 48, 12)
	models.Title = "Model"
	models.SetShowStatusBar(false)
	models.SetFilteringEnabled(true)

	ctx := textinput.New()
	ctx.SetValue("2048")
	ctx.CharLimit = 7
	ctx.Width = 10

	return launcher{cfg: cfg, modelDir: modelDir, models: models, ctxInput: ctx}
}

func (l launcher) Init() tea.Cmd { return nil }

func (l launcher) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		l.models.SetSize(msg.Width-4, msg.Height-12)
		return l, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !l.models.SettingFilter() && !l.focusCtx {
				return l, tea.Quit
			}
		case "tab":
			l.focusCtx = !l.focusCtx
			if l.focusCtx {
				l.ctxInput.Focus()
			} else {
				l.ctxInput.Blur()
			}
			return l, nil
		case "left", "h":
			if !l.focusCtx && !l.models.SettingFilter() {
				l.quantIdx = (l.quantIdx + len(quantizations) - 1) % len(quantizations)
				return l, nil
			}
		case "right":
			if !l.focusCtx && !l.models.SettingFilter() {
				l.quantIdx = (l.quantIdx + 1) % len(quantizations)
				return l, nil
			}
		case "enter":
			if l.models.SettingFilter() {
				break
			}
			choice, err := l.choice()
			if err != nil {
				l.errorText = err.Error()
				return l, nil
			}
			l.launch = choice
			return l, tea.Quit
		}
	}

	var cmd tea.Cmd
	if l.focusCtx {
		l.ctxInput, cmd = l.ctxInput.Update(msg)
		return l, cmd
	}
	l.models, cmd = l.models.Update(msg)
	return l, cmd
}

func (l launcher) choice() (*launchChoice, error) {
	item, ok := l.models.SelectedItem().(modelItem)
	if !ok {
		return nil, fmt.Errorf("no model selected")
	}
	ctxLen, err := strconv.Atoi(l.ctxInput.Value())
	if err != nil || ctxLen <= 0 {
		return nil, fmt.Errorf("context length must be a positive integer")
	}
	return &launchChoice{
		modelName:     string(item),
		quantization:  quantValue(l.quantIdx),
		contextLength: ctxLen,
	}, nil
}

func (l launcher) View() string {
	preview, err := l.previewCommand()
	if err != nil {
		preview = errStyle.Render(err.Error())
	}
	body := titleStyle.Render("Inference server launcher") + "\n\n" +
		l.models.View() + "\n" +
		fmt.Sprintf("Quantization: < %s >    Context length: %s\n", quantizations[l.quantIdx], l.ctxInput.View()) +
		previewStyle.Render(preview) + "\n" +
		hintStyle.Render("enter: launch · tab: edit context length · ←/→: quantization · q: quit")
	if l.errorText != "" {
		body += "\n" + errStyle.Render(l.errorText)
	}
	return body
}

// previewCommand mirrors what a launch with the current selection would run.
func (l launcher) previewCommand() (string, error) {
	item, ok := l.models.SelectedItem().(modelItem)
	if !ok {
		return "", fmt.Errorf("no models in %s", l.modelDir)
	}
	ctxLen, _ := strconv.Atoi(l.ctxInput.Value())
	argv, err := buildCommand(l.cfg, l.modelDir, string(item), quantValue(l.quantIdx), ctxLen)
	if err != nil {
		return "", err
	}
	return slurm.QuoteCommand(argv), nil
}

func quantValue(idx int) string {
	if quantizations[idx] == "None" {
		return ""
	}
	return quantizations[idx]
}

func buildCommand(cfg *cliconfig.Config, modelDir, modelName, quantization string, contextLength int) ([]string, error) {
	weightDir, err := model.Resolve(modelDir, model.ResolveOptions{Name: modelName})
	if err != nil {
		return nil, err
	}
	runtime := cfg.Runtime
	if runtime == "" {
		runtime = string(container.RuntimeSingularity)
	}
	return container.Command(container.Options{
		Runtime:       container.Runtime(runtime),
		Image:         cfg.Image,
		WeightDir:     weightDir,
		Quantization:  quantization,
		ContextLength: contextLength,
	})
}

type loggerFeedback struct {
	logger *logrus.Logger
}

func (f loggerFeedback) Info(msg string)  { f.logger.Info(msg) }
func (f loggerFeedback) Error(msg string) { f.logger.Error(msg) }

func main() {
	configPath := flag.String("config", os.Getenv("LLMDEPLOY_CONFIG"), "path to llmdeploy config file")
	modelDirFlag := flag.String("model-dir", "", "model cache directory (overrides config)")
	flag.Parse()

	if *configPath == "" {
		*configPath = cliconfig.DefaultConfigPath()
	}
	cfg, err := cliconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	modelDir := *modelDirFlag
	if modelDir == "" {
		modelDir = cfg.ModelDir
	}
	names, err := model.ListAvailable(modelDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	prog := tea.NewProgram(newLauncher(cfg, modelDir, names), tea.WithAltScreen())
	final, err := prog.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	l, ok := final.(launcher)
	if !ok || l.launch == nil {
		return
	}

	logger, logPath, err := logging.Setup(cliconfig.DefaultLogDir())
	if err != nil {
		logger.Warnf("log file unavailable: %v", err)
	}
	argv, err := buildCommand(cfg, modelDir, l.launch.modelName, l.launch.quantization, l.launch.contextLength)
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	client := slurm.NewClient(shell.New(logger), logger)
	sess := session.New(client, loggerFeedback{logger}, logger, session.Options{
		Script: slurm.ScriptOptions{
			Command:   argv,
			Email:     cfg.NotifyEmail,
			Partition: cfg.Partition,
			Gres:      cfg.Gres,
			TimeLimit: cfg.TimeLimit,
			Memory:    cfg.Memory,
		},
		RemotePort: cfg.RemotePort,
		LoginHost:  cfg.LoginHost,
		LogPath:    logPath,
	})
	os.Exit(sess.Run(ctx))
}
