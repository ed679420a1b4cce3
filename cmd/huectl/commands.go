package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lexfrei/go-hue/api"
)

func init() {
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(lightsCmd)
	rootCmd.AddCommand(lightCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(groupActionCmd)
	rootCmd.AddCommand(scenesCmd)
	rootCmd.AddCommand(sceneCmd)
	rootCmd.AddCommand(renameCmd)

	addStateFlags(setCmd)
	addStateFlags(groupActionCmd)
}

// discoverCmd scans for bridges
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find bridges on the network",
	Long: `Find Hue bridges using mDNS, and the public discovery endpoint when
discovery.remote is enabled in the configuration.`,
	Example: `  # Scan for bridges
  huectl discover

  # Machine-readable output
  huectl discover --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bridges, err := current.client.Discover(cmd.Context())
		if err != nil {
			return err
		}

		if len(bridges) == 0 && outputFormat != "json" {
			fmt.Fprintln(cmd.OutOrStdout(), "No bridges found.")
			fmt.Fprintln(cmd.OutOrStdout(), "Use 'huectl identify <address>' if you know the bridge address.")
			return nil
		}

		return render(cmd.OutOrStdout(), bridges, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tADDRESS\tNAME\tSOURCE\tPAIRED")
			for _, b := range bridges {
				_, paired := current.creds.Find(b.ID)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", b.ID, b.HostPort(), b.Name, b.Source, paired)
			}
		})
	},
}

// identifyCmd reads the id of a bridge at a known address
var identifyCmd = &cobra.Command{
	Use:     "identify <address>",
	Short:   "Show the id and name of the bridge at an address",
	Example: `  huectl identify 192.168.1.20`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, err := current.client.Identify(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), bridge, func(tw *tabwriter.Writer) {
			fmt.Fprintf(tw, "ID:\t%s\n", bridge.ID)
			fmt.Fprintf(tw, "Name:\t%s\n", bridge.Name)
			fmt.Fprintf(tw, "Address:\t%s\n", bridge.HostPort())
		})
	},
}

// pairCmd obtains and stores an application key
var pairCmd = &cobra.Command{
	Use:   "pair [address]",
	Short: "Pair with a bridge (press its link button)",
	Long: `Ask the bridge for an application key. Press the round link button on
the bridge when prompted; the command waits for pairing.timeout (30s by
default). The key is stored in the credentials file.`,
	Example: `  # Pair with the bridge at a known address
  huectl pair 192.168.1.20

  # Pair with the bridge selected by --bridge or the configuration
  huectl pair --bridge 001788fffe23bfc2`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			bridgeFlag = args[0]
		}

		bridge, err := current.selectedBridge(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Press the link button on bridge %s (%s)...\n", bridge.ID, bridge.HostPort())

		cred, err := current.client.Pair(cmd.Context(), bridge)
		if err != nil {
			return err
		}
		if err := current.remember(bridge, cred); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Paired with %s.\n", cred.BridgeID)
		return nil
	},
}

// lightsCmd lists lights
var lightsCmd = &cobra.Command{
	Use:   "lights",
	Short: "List lights",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bridge, err := current.selectedBridge(cmd.Context())
		if err != nil {
			return err
		}

		lights, err := current.client.Lights(cmd.Context(), bridge)
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), lights, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tNAME\tON\tBRI\tREACHABLE\tTYPE")
			for _, l := range lights {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					l.ID, l.Name, onOff(l.State.On), intOrDash(l.State.Bri), onOff(l.State.Reachable), l.Type)
			}
		})
	},
}

// lightCmd shows one light
var lightCmd = &cobra.Command{
	Use:     "light <id>",
	Short:   "Show one light with its state and capabilities",
	Example: `  huectl light 3`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, err := current.selectedBridge(cmd.Context())
		if err != nil {
			return err
		}

		light, err := current.client.Light(cmd.Context(), bridge, args[0])
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), light, func(tw *tabwriter.Writer) {
			fmt.Fprintf(tw, "ID:\t%s\n", light.ID)
			fmt.Fprintf(tw, "Name:\t%s\n", light.Name)
			fmt.Fprintf(tw, "Type:\t%s\n", light.Type)
			fmt.Fprintf(tw, "Model:\t%s\n", light.ModelID)
			fmt.Fprintf(tw, "On:\t%s\n", onOff(light.State.On))
			fmt.Fprintf(tw, "Brightness:\t%s\n", intOrDash(light.State.Bri))
			fmt.Fprintf(tw, "Color temperature:\t%s\n", intOrDash(light.State.CT))
			fmt.Fprintf(tw, "Color mode:\t%s\n", light.State.ColorMode)
			fmt.Fprintf(tw, "Reachable:\t%s\n", onOff(light.State.Reachable))
			fmt.Fprintf(tw, "Supports color:\t%t\n", light.Capabilities.SupportsColor())
			fmt.Fprintf(tw, "Supports ct:\t%t\n", light.Capabilities.SupportsColorTemperature())
		})
	},
}

// setCmd changes the state of one light
var setCmd = &cobra.Command{
	Use:   "set <light-id>",
	Short: "Change the state of a light",
	Example: `  # Turn a light on at half brightness
  huectl set 3 --on --bri 127

  # Warm white over two seconds
  huectl set 3 --ct 400 --transition 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := stateFromFlags(cmd)
		if err != nil {
			return err
		}

		bridge, err := current.selectedBridge(cmd.Context())
		if err != nil {
			return err
		}

		result, err := current.client.SetState(cmd.Context(), bridge, args[0], state)
		if err != nil {
			return err
		}

		return renderBatch(cmd.OutOrStdout(), result)
	},
}

// groupsCmd lists groups
var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List groups (rooms, zones)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bridge, err := current.selectedBridge(cmd.Context())
		if err != nil {
			return err
		}

		groups, err := current.client.Groups(cmd.Context(), bridge)
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), groups, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tANY ON\tLIGHTS")
			for _, g := range groups {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", g.ID, g.Name, g.Type, g.State.AnyOn, strings.Join(g.Lights, ","))
			}
		})
	},
}

// groupActionCmd changes every light of a group
var groupActionCmd = &cobra.Command{
	Use:   "group-action <group-id>",
	Short: "Change the state of every light in a group",
	Example: `  # Turn off every light
  huectl group-action 0 --off`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := stateFromFlags(cmd)
		if err != nil {
			return err
		}

		bridge, err := current.selectedBridge(cmd.Context())
		if err != nil {
			return err
		}

		result, err := current.client.SetGroupAction(cmd.Context(), bridge, args[0], api.GroupAction{LightState: state})
		if err != nil {
			return err
		}

		return renderBatch(cmd.OutOrStdout(), result)
	},
}

// scenesCmd lists scenes
var scenesCmd = &cobra.Command{
	Use:   "scenes",
	Short: "List scenes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bridge, err := current.selectedBridge(cmd.Context())
		if err != nil {
			return err
		}

		scenes, err := current.client.Scenes(cmd.Context(), bridge)
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), scenes, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tNAME\tGROUP\tLIGHTS")
			for _, s := range scenes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Group, strings.Join(s.Lights, ","))
			}
		})
	},
}

// sceneCmd recalls a scene
var sceneCmd = &cobra.Command{
	Use:     "scene <group-id> <scene-id>",
	Short:   "Activate a scene on a group",
	Example: `  huectl scene 1 Ab3xYz9Q1lmNOpq`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, err := current.selectedBridge(cmd.Context())
		if err != nil {
			return err
		}

		result, err := current.client.ActivateScene(cmd.Context(), bridge, args[0], args[1])
		if err != nil {
			return err
		}

		return renderBatch(cmd.OutOrStdout(), result)
	},
}

// renameCmd renames a light
var renameCmd = &cobra.Command{
	Use:     "rename <light-id> <name>",
	Short:   "Rename a light",
	Example: `  huectl rename 3 "Desk lamp"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, err := current.selectedBridge(cmd.Context())
		if err != nil {
			return err
		}

		result, err := current.client.RenameLight(cmd.Context(), bridge, args[0], args[1])
		if err != nil {
			return err
		}

		return renderBatch(cmd.OutOrStdout(), result)
	},
}

func addStateFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("on", false, "Turn on")
	cmd.Flags().Bool("off", false, "Turn off")
	cmd.Flags().Int("bri", 0, "Brightness (1-254)")
	cmd.Flags().Int("ct", 0, "Color temperature in mireds (153-500)")
	cmd.Flags().Int("hue", 0, "Hue (0-65535)")
	cmd.Flags().Int("sat", 0, "Saturation (0-254)")
	cmd.Flags().String("xy", "", "CIE color as x,y")
	cmd.Flags().Int("transition", 0, "Transition time in 100ms steps")
	cmd.Flags().String("alert", "", "Alert effect (none, select, lselect)")
	cmd.Flags().String("effect", "", "Dynamic effect (none, colorloop)")
	cmd.MarkFlagsMutuallyExclusive("on", "off")
}

// stateFromFlags builds a state from the flags the user actually set.
func stateFromFlags(cmd *cobra.Command) (api.LightState, error) {
	flags := cmd.Flags()
	var state api.LightState

	if flags.Changed("on") {
		state.On = api.Bool(true)
	}
	if flags.Changed("off") {
		state.On = api.Bool(false)
	}

	for name, target := range map[string]**int{
		"bri":        &state.Bri,
		"ct":         &state.CT,
		"hue":        &state.Hue,
		"sat":        &state.Sat,
		"transition": &state.TransitionTime,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return state, errors.Wrapf(err, "invalid --%s", name)
		}
		*target = api.Int(v)
	}

	if flags.Changed("xy") {
		raw, _ := flags.GetString("xy")
		xy, err := parseXY(raw)
		if err != nil {
			return state, err
		}
		state.XY = xy
	}

	state.Alert, _ = flags.GetString("alert")
	state.Effect, _ = flags.GetString("effect")

	if state.IsEmpty() {
		return state, errors.New("nothing to change: set at least one of --on, --off, --bri, --ct, --hue, --sat, --xy, --alert, --effect")
	}

	log.Debug().Interface("state", state).Msg("State from flags")

	return state, nil
}

func parseXY(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil, errors.Newf("--xy must be two comma-separated numbers, got %q", raw)
	}

	xy := make([]float64, 0, 2)
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid --xy value %q", p)
		}
		xy = append(xy, v)
	}

	return xy, nil
}
