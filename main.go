package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/caarlos0/env/v6"
	"github.com/edaniels/golog"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"gopkg.in/yaml.v2"

	"github.com/wheelworks/godrivebot/comms"
	"github.com/wheelworks/godrivebot/drive"
	"github.com/wheelworks/godrivebot/drive/hardware"
)

type EnvConfig struct {
	DEBUG   bool   `env:"DEBUG" envDefault:"0"`
	CONFIG  string `env:"DRIVEBOT_CONFIG" envDefault:"./drivebot.yaml"`
	DATADIR string `env:"DATADIR" envDefault:"./tmp"`

	Conductor *comms.Conductor
	Drive     *drive.Drive
}

var ENV *EnvConfig

func init() {
	ENV = new(EnvConfig)
	env.Parse(ENV)
}

func main() {
	simulated := flag.Bool("sim", false, "Run against a simulated motor HAT")
	port := flag.String("port", "0.0.0.0:8080", "Specify the ip:port to listen on")
	flag.Parse()

	logger := golog.NewDevelopmentLogger("godrivebot")
	if ENV.DEBUG {
		logger = golog.NewDebugLogger("godrivebot")
	}

	//---
	// Load and gate the config
	//---
	filename, err := filepath.Abs(ENV.CONFIG)
	if err != nil {
		logger.Fatalw("unable to resolve config path", "path", ENV.CONFIG, "error", err)
	}
	yamlFile, err := os.ReadFile(filename)
	if err != nil {
		logger.Fatalw("unable to read config file", "path", filename, "error", err)
	}

	var config drive.Config
	if err = yaml.Unmarshal(yamlFile, &config); err != nil {
		logger.Fatalw("unable to unmarshal config", "error", err)
	}
	if err = config.CheckVersion(); err != nil {
		logger.Fatalw("unsupported config", "error", err)
	}
	config.Normalize(logger)

	//---
	// Bring up the motor HAT
	//---
	var bus hardware.BusInterface
	if *simulated {
		logger.Info("running with a simulated motor hat")
		bus = hardware.NewSimulatedBus()
	} else {
		bus, err = hardware.NewBus(config.Hat.Bus)
		if err != nil {
			logger.Fatalw("unable to open i2c bus", "device", config.Hat.Bus, "error", err)
		}
	}
	defer bus.Close()

	hat, err := hardware.NewMotorHAT(bus, config.Hat.Addr, config.Drive.MaxPWM)
	if err != nil {
		logger.Fatalw("unable to initialize motor hat", "error", err)
	}

	left, ok := hat.Motor(hardware.MOTOR_LEFT)
	if !ok {
		logger.Fatalw("unable to resolve motor channel", "motor", hardware.MOTOR_LEFT)
	}
	right, ok := hat.Motor(hardware.MOTOR_RIGHT)
	if !ok {
		logger.Fatalw("unable to resolve motor channel", "motor", hardware.MOTOR_RIGHT)
	}
	ENV.Drive = drive.NewDrive(left, right, &config, logger)
	logger.Info("actuators initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driveDone := make(chan struct{})
	go func() {
		defer close(driveDone)
		ENV.Drive.Run(ctx)
	}()

	//---
	// Blackbox recorder
	//---
	if err = os.MkdirAll(ENV.DATADIR, 0755); err != nil {
		logger.Fatalw("unable to create data dir", "dir", ENV.DATADIR, "error", err)
	}
	db, err := openDb(filepath.Join(ENV.DATADIR, "blackbox.db"))
	if err != nil {
		logger.Fatalw("unable to open blackbox db", "error", err)
	}
	defer db.Close()
	go recordBlackbox(ctx, db, ENV.Drive, logger)

	//---
	// Command transport
	//---
	ENV.Conductor = comms.NewConductor(config.Broker, config.Topics.CmdVel, config.Topics.Imu, ENV.Drive, logger)
	if err = ENV.Conductor.Connect(); err != nil {
		logger.Warnw("broker not connected yet", "broker", config.Broker, "error", err)
	}
	defer ENV.Conductor.Close()

	//---
	// Create a local shell
	//---
	{
		shell := ishell.New()
		shell.Println("godrivebot development shell")

		shell.AddCmd(&ishell.Cmd{
			Name: "twist",
			Help: "twist <linear> <angular>",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 2 {
					c.Err(errUsageTwist)
					return
				}
				linear, _ := strconv.ParseFloat(c.Args[0], 64)
				angular, _ := strconv.ParseFloat(c.Args[1], 64)
				c.Printf("Driving with linear=%.2f angular=%.2f\n", linear, angular)
				ENV.Drive.HandleTwist(linear, angular)
			},
		})

		shell.AddCmd(&ishell.Cmd{
			Name: "idle",
			Help: "release both motors",
			Func: func(c *ishell.Context) {
				if err := ENV.Drive.Idle(); err != nil {
					c.Err(err)
				}
			},
		})

		shell.AddCmd(&ishell.Cmd{
			Name: "state",
			Help: "print the current drive state",
			Func: func(c *ishell.Context) {
				c.Printf("%+v\n", ENV.Drive.State())
			},
		})

		go shell.Start()
	}

	//---
	// Build the API routes
	//---
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", StateHandler)
		r.Post("/twist", TwistHandler)
	})

	r.Route("/ws", func(r chi.Router) {
		r.Get("/teleop", TeleopHandler)
	})

	server := &http.Server{Addr: *port, Handler: r}
	go func() {
		logger.Infow("listening", "addr", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	// the motors must be released before the deferred bus close runs
	<-driveDone
}
