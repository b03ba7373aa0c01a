package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"diachron/internal/config"
	"diachron/internal/corpus"
	"diachron/internal/domain"
	"diachron/internal/embedding/word2vec"
	"diachron/internal/platform/logger"
	"diachron/internal/resultstore/memory"
	"diachron/internal/resultstore/sqlite"
	"diachron/internal/service"
	"diachron/internal/tui"
)

const usage = `Usage: diachron [--config=diachron.yaml] <command> [flags]

Commands:
  naive                      independent models per era
  overlap                    per-era models with boundary overlap
  aligned                    per-era models rotated onto a rolling base
  chrono [--from-era=LABEL]  one model trained forward through the eras
  report --variant=V [--tui] re-aggregate the latest stored runs
  coverage                   occurrences of the study words per era
`

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/diachron/config.yaml if not provided)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	cmd, rest := args[0], args[1:]

	logger.Init(logger.FromEnv())
	lg := logger.Named("main")

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config %s: %v", cfgPath, err)
	}
	lg.Debug().Str("config", cfgPath).Msg("config loaded")

	// Assemble components
	var st domain.RunStore
	switch cfg.Store.Type {
	case "memory":
		st = memory.NewStorage()
	case "sqlite":
		st, err = sqlite.Open(cfg.Store.SQLite.Path)
		if err != nil {
			log.Fatalf("open run store: %v", err)
		}
	default:
		log.Fatalf("unknown run store: %s", cfg.Store.Type)
	}
	defer st.Close()

	var c *corpus.Corpus
	if cmd != "report" {
		c, err = corpus.Load(cfg.Corpus.Dir, cfg.Corpus.FilePattern, cfg.Corpus.Eras)
		if err != nil {
			log.Fatalf("load corpus: %v", err)
		}
	}

	trainer, err := word2vec.NewTrainer(cfg.Word2Vec)
	if err != nil {
		log.Fatalf("word2vec: %v", err)
	}
	checkpoints, err := word2vec.NewFileStore(cfg.Output.CheckpointDir)
	if err != nil {
		log.Fatalf("checkpoint dir: %v", err)
	}

	svc := service.NewStudyService(c, trainer, checkpoints, st, cfg.Aggregator(), service.Options{
		Study:               cfg.StudyWords(),
		Seed:                cfg.Study.Seed,
		BootstrapIterations: cfg.Study.BootstrapIterations,
		ChronoIterations:    cfg.Study.ChronoIterations,
		OverlapFraction:     cfg.Corpus.OverlapFraction,
		IntervalTarget:      cfg.Study.IntervalTarget,
		OutputDir:           cfg.Output.Dir,
	})

	switch cmd {
	case "naive", "overlap", "aligned":
		res, err := svc.Run(domain.Variant(cmd))
		if err != nil {
			log.Fatalf("%s failed: %v", cmd, err)
		}
		printResult(res)
	case "chrono":
		fs := flag.NewFlagSet("chrono", flag.ExitOnError)
		from := fs.String("from-era", "", "resume at this era from the previous era's checkpoint")
		_ = fs.Parse(rest)
		res, err := svc.Chrono(*from)
		if err != nil {
			log.Fatalf("chrono failed: %v", err)
		}
		printResult(res)
	case "report":
		fs := flag.NewFlagSet("report", flag.ExitOnError)
		variant := fs.String("variant", "", "naive, overlap, chrono or aligned")
		interactive := fs.Bool("tui", false, "browse the report interactively")
		_ = fs.Parse(rest)
		v := domain.Variant(*variant)
		if !v.Valid() {
			log.Fatalf("unknown variant %q", *variant)
		}
		res, err := svc.Report(v)
		if err != nil {
			log.Fatalf("report failed: %v", err)
		}
		if *interactive {
			if _, err := tea.NewProgram(tui.New(svc, v, res), tea.WithAltScreen()).Run(); err != nil {
				log.Fatal(err)
			}
			return
		}
		printResult(res)
	case "coverage":
		r, err := svc.Coverage()
		if err != nil {
			log.Fatalf("coverage failed: %v", err)
		}
		fmt.Print(tui.RenderCoverage(r))
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func printResult(res *service.Result) {
	fmt.Print(tui.RenderTable(res.Table))
	for _, f := range res.Files {
		fmt.Println("wrote", f)
	}
}
