package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudkucooland/farremote"
	"github.com/cloudkucooland/farremote/config"
	"github.com/cloudkucooland/farremote/logbuf"
	"github.com/cloudkucooland/farremote/mdns"
	"github.com/cloudkucooland/farremote/rules"
	"github.com/cloudkucooland/farremote/runner"
	"github.com/cloudkucooland/farremote/store"

	hclog "github.com/brutella/hc/log"
	"github.com/go-ping/ping"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	var dir, file, ip string
	var debug bool

	app := cli.App{
		Name:      "farremote",
		Usage:     "pretend to be a Roku so a Harmony hub can drive a Freebox",
		Version:   farremote.Version,
		ArgsUsage: "[ipv4 address to advertise]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Value:       "config",
				Usage:       "configuration directory",
				Destination: &dir,
			},
			&cli.StringFlag{
				Name:        "config",
				Value:       "server.json",
				Usage:       "configuration file (.json or .yaml)",
				Destination: &file,
			},
			&cli.StringFlag{
				Name:        "ip",
				Usage:       "IPv4 address to advertise instead of the first interface found",
				Destination: &ip,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "log everything",
				Destination: &debug,
			},
		},
		Before: func(c *cli.Context) error {
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			if debug {
				log.SetLevel(log.DebugLevel)
				hclog.Debug.Enable()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(dir, file, ip, c.Args().First())
			if err != nil {
				return err
			}

			logs := logbuf.New(logbuf.DefaultSize)
			log.AddHook(logs)

			bridge, err := farremote.Bootstrap(conf, logs)
			if err != nil {
				return err
			}
			if err := bridge.Start(); err != nil {
				return err
			}

			// wait for signal to shut down
			sigch := make(chan os.Signal, 3)
			signal.Notify(sigch, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)

			for sig := range sigch {
				if sig == syscall.SIGHUP {
					log.Info("SIGHUP: reloading rules")
					bridge.LoadRules()
					continue
				}
				log.Infof("shutdown requested by signal: %s", sig)
				break
			}
			bridge.Shutdown()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "check that the Freebox answers, optionally finding it with DNS-SD",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "discover", Usage: "browse for the Freebox instead of using the configured host"},
					&cli.BoolFlag{Name: "privileged", Usage: "use raw ICMP sockets"},
					&cli.IntFlag{Name: "count", Value: 3, Usage: "pings to send"},
					&cli.StringFlag{Name: "key", Usage: "also send this Freebox key, e.g. mute (it is really pressed)"},
				},
				Action: func(c *cli.Context) error {
					conf, err := loadConfig(dir, file, ip, "")
					if err != nil {
						return err
					}
					return check(c, conf)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(dir, file, ip, positional string) (config.Config, error) {
	conf, err := config.Load(dir, file)
	if err != nil {
		return conf, err
	}
	// command line wins over the file, the positional address over --ip
	if ip != "" {
		conf.AdvertiseIP = ip
	}
	if positional != "" {
		conf.AdvertiseIP = positional
	}
	return conf, conf.Validate()
}

func check(c *cli.Context, conf config.Config) error {
	host := conf.DefaultHost
	remoteID := ""
	st, err := store.New(conf.RulesPath())
	if err != nil {
		return err
	}
	if raw, err := st.Load(); err == nil {
		if rs, err := rules.Parse(raw, conf.DefaultHost); err == nil {
			host, remoteID = rs.Host, rs.RemoteID
		}
	}

	if c.Bool("discover") {
		found, err := mdns.Browse(c.Context, mdns.FreeboxType, 5*time.Second)
		if err != nil {
			return err
		}
		fmt.Printf("discovered Freebox at %s\n", found)
		host = found
	}

	target := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		target = h
	}
	pinger, err := ping.NewPinger(target)
	if err != nil {
		return fmt.Errorf("ping %s: %w", target, err)
	}
	pinger.Count = c.Int("count")
	pinger.Timeout = time.Duration(pinger.Count+2) * time.Second
	pinger.SetPrivileged(c.Bool("privileged"))
	if err := pinger.Run(); err != nil {
		return fmt.Errorf("ping %s: %w", target, err)
	}
	stats := pinger.Statistics()
	fmt.Printf("%s: %d/%d packets, %.0f%% loss, avg %s\n", stats.Addr, stats.PacketsRecv, stats.PacketsSent, stats.PacketLoss, stats.AvgRtt)

	ctx, cancel := context.WithTimeout(c.Context, conf.ActionTimeout())
	defer cancel()
	run := runner.New(conf.ActionTimeout(), nil)
	target = checkURL(host, remoteID, c.String("key"))
	status, err := run.TestURL(ctx, target)
	if status == 0 {
		return fmt.Errorf("remote control endpoint: %w", err)
	}
	fmt.Printf("%s answered HTTP %d\n", target, status)
	return nil
}

// checkURL only carries a key when one was asked for, a bare request presses nothing
func checkURL(host, remoteID, key string) string {
	if key == "" {
		return rules.RemoteURL(host)
	}
	return rules.KeyURL(host, remoteID, key)
}
