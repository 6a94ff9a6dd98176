package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/hazard-cli/internal/config"
	"github.com/sells-group/hazard-cli/internal/geo"
	"github.com/sells-group/hazard-cli/internal/landmask"
	"github.com/sells-group/hazard-cli/internal/scenario"
)

var (
	landmaskScenario string
	landmaskOut      string
)

var landmaskCmd = &cobra.Command{
	Use:   "landmask",
	Short: "Resolve and print the land mask a scenario would be clipped to",
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := resolveLandMask(cfg, landmaskScenario)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, landmaskOut, fc)
	},
}

func init() {
	landmaskCmd.Flags().StringVar(&landmaskScenario, "scenario", "", "scenario file, JSON or YAML (required)")
	landmaskCmd.Flags().StringVar(&landmaskOut, "out", "", "write the GeoJSON to this file instead of stdout")
	_ = landmaskCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(landmaskCmd)
}

// resolveLandMask loads the scenario at path and returns its land mask as a
// feature collection. The collection is empty when no source applies.
func resolveLandMask(c *config.Config, path string) (*geojson.FeatureCollection, error) {
	s, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}

	r := landmask.New(
		landmask.WithMarginKm(c.Hazard.LandMarginKm),
		landmask.WithAreaOfInterestPadKm(c.Hazard.AOIPadKm),
	)
	mask, source, err := r.Resolve(s, c.DataDir)
	if err != nil {
		return nil, err
	}

	zap.L().Info("land mask resolved",
		zap.String("scenario", scenario.Name(s, path)),
		zap.String("source", string(source)),
	)

	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	if geo.IsEmpty(mask) {
		return fc, nil
	}
	fc.Features = append(fc.Features, &geojson.Feature{
		Geometry: mask,
		Properties: map[string]interface{}{
			"source":   string(source),
			"polygons": mask.NumPolygons(),
			"area_km2": geo.AreaKm2(mask, geo.CentroidLatitude(mask)),
		},
	})
	return fc, nil
}
