package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitum-deploy/keygen/crypto"
	"github.com/mitum-deploy/keygen/genesis"
	"github.com/mitum-deploy/keygen/keygen"
	"github.com/mitum-deploy/keygen/keygen/output"
	"github.com/mitum-deploy/keygen/keygen/storage"
	"github.com/urfave/cli/v2"
)

const (
	networkIdFlag       = "network-id"
	nodeCountFlag       = "node-count"
	thresholdFlag       = "threshold"
	outputFlag          = "output"
	typeFlag            = "type"
	seedFlag            = "seed"
	mnemonicFlag        = "mnemonic"
	maxParticipantsFlag = "max-participants"
	noSdkFlag           = "no-sdk"
	workersFlag         = "workers"
	registryFlag        = "registry"
	registryBackendFlag = "registry-backend"
	quietFlag           = "quiet"
	logLevelFlag        = "log-level"
	listFlag            = "list"
	hostFlag            = "host"
	addrFlag            = "addr"
)

// loadEnv loads a .env file from the working directory if there is one.
// It has to run before the flags are parsed for the KEYGEN_ variables
// to be picked up as flag values.
func loadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	envPath := filepath.Join(wd, ".env")
	if _, err := os.Stat(envPath); err != nil {
		return
	}
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("error loading .env file: %v", err)
	}
}

func main() {
	loadEnv()

	app := &cli.App{
		Name:  "mitum-keygen",
		Usage: "generate node keys and the genesis account for a mitum network",
		Flags: generateFlags,
		Commands: []*cli.Command{
			generateCmd,
			runsCmd,
			showCmd,
			inventoryCmd,
			serveCmd,
		},
		Action: generate,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var registryFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    registryFlag,
		Usage:   "Directory of the run registry. Runs are not recorded if empty",
		EnvVars: []string{"KEYGEN_REGISTRY"},
	},
	&cli.StringFlag{
		Name:    registryBackendFlag,
		Usage:   "Registry backend: bolt or sqlite",
		Value:   string(keygen.BoltRegistry),
		EnvVars: []string{"KEYGEN_REGISTRY_BACKEND"},
	},
	&cli.StringFlag{
		Name:    logLevelFlag,
		Usage:   "Log level: debug, info, warn or disable",
		Value:   "info",
		EnvVars: []string{"KEYGEN_LOG_LEVEL"},
	},
}

var generateFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:    networkIdFlag,
		Usage:   "Network ID",
		Value:   "mitum",
		EnvVars: []string{"KEYGEN_NETWORK_ID"},
	},
	&cli.IntFlag{
		Name:    nodeCountFlag,
		Aliases: []string{"n"},
		Usage:   "Number of nodes",
		Value:   1,
		EnvVars: []string{"KEYGEN_NODE_COUNT"},
	},
	&cli.UintFlag{
		Name:    thresholdFlag,
		Usage:   "Genesis account signing threshold, in percent",
		Value:   genesis.TotalWeight,
		EnvVars: []string{"KEYGEN_THRESHOLD"},
	},
	&cli.StringFlag{
		Name:    outputFlag,
		Aliases: []string{"o"},
		Usage:   "Output directory",
		Value:   "./keys",
		EnvVars: []string{"KEYGEN_OUTPUT"},
	},
	&cli.StringFlag{
		Name:    typeFlag,
		Aliases: []string{"t"},
		Usage:   "Key type: btc, ether or stellar",
		Value:   crypto.BTC.String(),
		EnvVars: []string{"KEYGEN_TYPE"},
	},
	&cli.StringFlag{
		Name:    seedFlag,
		Usage:   "Seed for deterministic key generation",
		EnvVars: []string{"KEYGEN_SEED"},
	},
	&cli.StringFlag{
		Name:    mnemonicFlag,
		Usage:   "BIP-39 mnemonic to derive node keys from",
		EnvVars: []string{"KEYGEN_MNEMONIC"},
	},
	&cli.IntFlag{
		Name:    maxParticipantsFlag,
		Usage:   "Maximum number of keys in the genesis account",
		Value:   genesis.DefaultMaxParticipants,
		EnvVars: []string{"KEYGEN_MAX_PARTICIPANTS"},
	},
	&cli.BoolFlag{
		Name:    noSdkFlag,
		Usage:   "Skip the key generator and use fallback derivation",
		EnvVars: []string{"KEYGEN_DISABLE_SDK"},
	},
	&cli.IntFlag{
		Name:    workersFlag,
		Usage:   "Number of nodes generated concurrently",
		Value:   1,
		EnvVars: []string{"KEYGEN_WORKERS"},
	},
	&cli.BoolFlag{
		Name:    quietFlag,
		Aliases: []string{"q"},
		Usage:   "Only log warnings and do not print the summary",
	},
}, registryFlags...)

var generateCmd = &cli.Command{
	Name:   "generate",
	Usage:  "Generate node keys",
	Flags:  generateFlags,
	Action: generate,
}

func configFromContext(ctx *cli.Context) (keygen.Config, error) {
	config := keygen.DefaultConfig()

	keyType, err := crypto.ParseKeyType(ctx.String(typeFlag))
	if err != nil {
		return config, err
	}
	logLevel, err := keygen.ParseLogLevel(ctx.String(logLevelFlag))
	if err != nil {
		return config, err
	}
	if ctx.Bool(quietFlag) && logLevel != keygen.Disable {
		logLevel = keygen.Warn
	}

	config.NetworkID = ctx.String(networkIdFlag)
	config.NodeCount = ctx.Int(nodeCountFlag)
	config.Threshold = ctx.Uint(thresholdFlag)
	config.OutputDir = ctx.String(outputFlag)
	config.KeyType = keyType
	if ctx.IsSet(seedFlag) {
		seed := ctx.String(seedFlag)
		config.Seed = &seed
	}
	config.Mnemonic = ctx.String(mnemonicFlag)
	config.MaxParticipants = ctx.Int(maxParticipantsFlag)
	config.DisableSDK = ctx.Bool(noSdkFlag)
	config.Workers = ctx.Int(workersFlag)
	config.RegistryPath = ctx.String(registryFlag)
	config.RegistryBackend = keygen.RegistryBackend(ctx.String(registryBackendFlag))
	config.LogLevel = logLevel

	return config, config.Validate()
}

func generate(ctx *cli.Context) error {
	config, err := configFromContext(ctx)
	if err != nil {
		printErr(err)
	}
	logger := keygen.NewLogger(os.Stderr, config.LogLevel)

	result, err := keygen.Generate(ctx.Context, config, logger)
	if err != nil {
		var nodeErr *keygen.NodeError
		if errors.As(err, &nodeErr) {
			printErr(fmt.Errorf("key generation failed for %v: %v", keygen.NodeName(nodeErr.Index), nodeErr.Err))
		}
		printErr(err)
	}

	manifest, err := output.Write(config.OutputDir, result)
	if err != nil {
		printErr(err)
	}
	logger.Info("keys written", slog.String("dir", manifest.Dir), slog.Int("files", len(manifest.Files)))

	if len(config.RegistryPath) > 0 {
		db, err := keygen.OpenRegistry(config.RegistryPath, config.RegistryBackend)
		if err != nil {
			printErr(fmt.Errorf("error opening registry: %v", err))
		}
		defer db.Close()

		run, err := keygen.RecordRun(db, result, manifest.Dir)
		if err != nil {
			printErr(err)
		}
		logger.Info("run recorded", slog.String("id", run.Id))
	}

	if ctx.Bool(quietFlag) {
		return nil
	}
	printJSON(result.Summary)
	return nil
}

// openRegistry opens the registry named by the command flags.
// A registry is required by every command other than generate.
func openRegistry(ctx *cli.Context) storage.DB {
	path := ctx.String(registryFlag)
	if len(path) == 0 {
		printErr(errors.New("registry not specified. Use --registry or KEYGEN_REGISTRY"))
	}

	db, err := keygen.OpenRegistry(path, keygen.RegistryBackend(ctx.String(registryBackendFlag)))
	if err != nil {
		printErr(fmt.Errorf("error opening registry: %v", err))
	}
	return db
}

var runsCmd = &cli.Command{
	Name:   "runs",
	Usage:  "List recorded generation runs",
	Flags:  registryFlags,
	Action: listRuns,
}

func listRuns(ctx *cli.Context) error {
	db := openRegistry(ctx)
	defer db.Close()

	runs, err := db.GetRuns()
	if err != nil {
		printErr(err)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	for _, run := range runs {
		createdAt := time.Unix(run.CreatedAt, 0).UTC().Format(time.RFC3339)
		fmt.Printf("%v  %v  network: %v  nodes: %v  type: %v  fallback: %v  output: %v\n",
			run.Id, createdAt, run.NetworkID, run.NodeCount, run.KeyType, run.Fallback, run.OutputDir)
	}
	return nil
}

var showCmd = &cli.Command{
	Name:      "show",
	Usage:     "Print the summary of a recorded run",
	ArgsUsage: "[run id]",
	Flags:     registryFlags,
	Action:    show,
}

func show(ctx *cli.Context) error {
	db := openRegistry(ctx)
	defer db.Close()

	var run storage.Run
	var err error
	if ctx.Args().Len() < 1 {
		run, err = db.LatestRun()
	} else {
		run, err = db.GetRun(ctx.Args().First())
	}
	if err != nil {
		printErr(err)
	}

	summary, err := keygen.DecodeSummary(run)
	if err != nil {
		printErr(err)
	}
	printJSON(summary)
	return nil
}

var inventoryCmd = &cli.Command{
	Name:  "inventory",
	Usage: "Ansible dynamic inventory for the latest recorded run",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:  listFlag,
			Usage: "List all hosts",
		},
		&cli.StringFlag{
			Name:  hostFlag,
			Usage: "Variables for a single host",
		},
	}, registryFlags...),
	Action: inventory,
}

func inventory(ctx *cli.Context) error {
	db := openRegistry(ctx)
	defer db.Close()

	inv := keygen.EmptyInventory()
	run, err := db.LatestRun()
	if err == nil {
		summary, err := keygen.DecodeSummary(run)
		if err != nil {
			printErr(err)
		}
		inv = keygen.BuildInventory(summary)
	} else if !errors.Is(err, storage.ErrRunNotFound) {
		printErr(err)
	}

	if ctx.IsSet(hostFlag) {
		vars, ok := inv.Host(ctx.String(hostFlag))
		if !ok {
			// unknown hosts have no variables
			fmt.Println("{}")
			return nil
		}
		printJSON(vars)
		return nil
	}

	printJSON(inv)
	return nil
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Serve recorded runs and the inventory over HTTP",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:    addrFlag,
			Usage:   "Address to listen on",
			Value:   "127.0.0.1:8080",
			EnvVars: []string{"KEYGEN_ADDR"},
		},
	}, registryFlags...),
	Action: serve,
}

func serve(ctx *cli.Context) error {
	logLevel, err := keygen.ParseLogLevel(ctx.String(logLevelFlag))
	if err != nil {
		printErr(err)
	}
	logger := keygen.NewLogger(os.Stderr, logLevel)

	db := openRegistry(ctx)
	defer db.Close()

	server := keygen.NewServer(db, ctx.String(addrFlag), logger)

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down server", slog.String("error", err.Error()))
		}
	}()

	return server.Start()
}

func printJSON(value any) {
	jsonOut, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		printErr(err)
	}
	fmt.Println(string(jsonOut))
}

func printErr(msg error) {
	fmt.Fprintln(os.Stderr, msg.Error())
	os.Exit(1)
}
