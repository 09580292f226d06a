package main

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/vexxhost/clonekit/internal/azure"
	"github.com/vexxhost/clonekit/internal/clone"
	"github.com/vexxhost/clonekit/internal/progress"
)

type LogFormatOpts enumflag.Flag

const (
	Text LogFormatOpts = iota
	JSON
)

var LogFormatOptsIds = map[LogFormatOpts][]string{
	Text: {"text"},
	JSON: {"json"},
}

var (
	debug      bool
	quiet      bool
	logFormat  LogFormatOpts
	configFile string

	opts clone.Options
)

var rootCmd = &cobra.Command{
	Use:   "clonekit",
	Short: "Clone an Azure managed-disk VM into a new or existing resource group",
	Long: strings.TrimSpace(`
clonekit snapshots (or reuses snapshots of) a source VM's managed disks,
recreates its NICs, public IPs and availability-set membership in the
destination resource group, and assembles a new VM from the copied disks.
The run is strictly sequential with no rollback: resources created before a
failure are left in place for manual cleanup.`),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug {
			log.SetLevel(log.DebugLevel)
		}
		if logFormat == JSON {
			log.SetFormatter(&log.JSONFormatter{})
		}
		progress.Quiet = quiet

		if configFile != "" {
			if err := opts.MergeFile(configFile, cmd.Flags()); err != nil {
				return err
			}
		}
		if err := opts.Validate(); err != nil {
			return err
		}
		opts.ApplyDefaults()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cred, err := azure.NewDefaultCredential()
		if err != nil {
			return err
		}
		src, err := azure.NewClientSet(opts.SourceSubscriptionID, cred)
		if err != nil {
			return err
		}
		dst := src
		if opts.DestSubscriptionID != opts.SourceSubscriptionID {
			if dst, err = azure.NewClientSet(opts.DestSubscriptionID, cred); err != nil {
				return err
			}
		}

		// Resolve the subscription names up front so bad credentials or
		// ids surface before any resource work starts.
		sets := []*azure.ClientSet{src}
		if dst != src {
			sets = append(sets, dst)
		}
		for _, cs := range sets {
			sub, err := cs.GetSubscription(ctx)
			if err != nil {
				log.WithError(err).WithField("subscription_id", cs.SubscriptionID).
					Warn("Cannot resolve subscription, continuing anyway")
				continue
			}
			log.WithFields(log.Fields{
				"subscription_id": cs.SubscriptionID,
				"subscription":    deref(sub.DisplayName),
			}).Info("Using subscription")
		}

		_, err = clone.New(opts, src, dst).Run(ctx)
		return err
	},
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func init() {
	flags := rootCmd.Flags()

	flags.StringVar(&opts.SourceResourceGroup, "resource-group", "", "Source resource group name")
	flags.StringVar(&opts.SourceSubscriptionID, "subscription-id", "", "Source subscription id")
	flags.StringVar(&opts.SourceVMName, "vm-name", "", "Source virtual machine name")
	flags.StringVar(&opts.DestVNetName, "vnet-name", "", "Destination virtual network name")
	flags.StringVar(&opts.DestVNetResourceGroup, "vnet-resource-group", "", "Resource group of the destination VNet (default: source resource group)")
	flags.StringVar(&opts.DestLocation, "location", "", "Destination location override (default: destination resource group location)")
	flags.StringVar(&opts.DestResourceGroup, "dest-resource-group", "", "Destination resource group (default: source resource group; created if missing)")
	flags.StringVar(&opts.DestSubscriptionID, "dest-subscription-id", "", "Destination subscription id (default: source subscription)")
	flags.StringVar(&opts.DestVMName, "dest-vm-name", "", "Name for the cloned VM (default: <source>-clone-<suffix>)")
	flags.BoolVar(&opts.KeepSourceComputerName, "keep-source-computer-name", false, "Acknowledge that the clone keeps the source's in-guest computer name")
	flags.BoolVar(&opts.ForceAcceleratedNetworking, "force-accelerated-networking", false, "Enable accelerated networking on cloned NICs even when the source had it off")
	flags.BoolVar(&opts.UseExistingAvailabilitySet, "use-existing-avset", true, "Reuse the source availability set (or --existing-avset-name) instead of creating one")
	flags.StringVar(&opts.ExistingAvailabilitySet, "existing-avset-name", "", "Existing availability set in the destination resource group to join")
	flags.BoolVar(&opts.CopyTags, "copy-tags", false, "Copy resource tags from the source objects")
	flags.StringVar(&opts.OSSnapshotName, "os-snapshot-name", "", "Reuse this existing OS disk snapshot instead of creating new snapshots")
	flags.StringVar(&opts.DataSnapshotName, "data-snapshot-name", "", "Reuse this existing data disk snapshot (single data disk only)")
	flags.StringVar(&opts.SnapshotResourceGroup, "snapshot-resource-group", "", "Resource group holding the existing snapshots (default: source resource group)")

	flags.StringVar(&configFile, "config", "", "YAML file with clone parameters (explicit flags win)")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&quiet, "quiet", false, "Suppress progress spinners")
	flags.Var(enumflag.New(&logFormat, "log-format", LogFormatOptsIds, enumflag.EnumCaseInsensitive),
		"log-format", "Log output format: text or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("Clone failed")
		os.Exit(1)
	}
}
