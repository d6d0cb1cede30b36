package cmd

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/rboxdist/internal/rbox"
	"github.com/spf13/cobra"
)

const (
	toPolygon  = "polygon"
	toBox      = "box"
	toLongSide = "longside"
	toOpenCV   = "opencv"
)

var validTargets = []string{toPolygon, toBox, toLongSide, toOpenCV}

func newConvertCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert between box and polygon representations",
		Long: `Convert boxes between representations.

Targets:
  polygon   boxes1 rows (cx,cy,w,h,angle[,label]) to four corners
  box       polygons rows (x1,y1,...,x4,y4[,label]) to minimum-area boxes
  longside  boxes1 rows to the long-side angle convention
  opencv    boxes1 rows to the OpenCV angle convention

Examples:
  rboxdist convert --to polygon -a "50,50,100,40,30"
  rboxdist convert --to box --polygons "0,0,10,0,10,5,0,5"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			to, _ := cmd.Flags().GetString("to")
			to = strings.ToLower(to)
			if !contains(validTargets, to) {
				return fmt.Errorf("invalid target: %s (must be one of: %s)", to, strings.Join(validTargets, ", "))
			}

			in, err := readBatch(cmd)
			if err != nil {
				return err
			}
			out := a.output(cmd, cfg)

			switch to {
			case toBox:
				rows, err := boxRowsFromPolygons(in.Polygons)
				if err != nil {
					return err
				}
				return out.matrix("boxes", rows)
			case toPolygon:
				rows, err := polygonRows(in.Boxes1)
				if err != nil {
					return err
				}
				return out.matrix("polygons", rows)
			default:
				boxes, err := rbox.BoxesFromRows(in.Boxes1)
				if err != nil {
					return fmt.Errorf("boxes1: %w", err)
				}
				mode := rbox.LongSide
				if to == toOpenCV {
					mode = rbox.OpenCV
				}
				converted, err := rbox.CoordinatePresentConvert(boxes, mode)
				if err != nil {
					return err
				}
				return out.matrix("boxes", boxRows(converted))
			}
		},
	}

	addBatchFlags(cmd)
	cmd.Flags().StringP("polygons", "p", "", `polygons as rows "x1,y1,x2,y2,x3,y3,x4,y4;..."`)
	cmd.Flags().StringP("to", "t", toPolygon, "target: polygon, box, longside or opencv")
	return cmd
}

// polygonRows converts 5-column rows, or 6-column rows carrying a label.
func polygonRows(rows [][]float64) ([][]float64, error) {
	if len(rows) > 0 && len(rows[0]) == 6 {
		labeled, err := rbox.LabeledBoxesFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("boxes1: %w", err)
		}
		out := make([][]float64, 0, len(labeled))
		for _, p := range rbox.ForwardConvertLabeled(labeled) {
			out = append(out, append(p.Row(), float64(p.Label)))
		}
		return out, nil
	}

	boxes, err := rbox.BoxesFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("boxes1: %w", err)
	}
	out := make([][]float64, 0, len(boxes))
	for _, p := range rbox.ForwardConvert(boxes) {
		out = append(out, p.Row())
	}
	return out, nil
}

// boxRowsFromPolygons converts 8-column rows, or 9-column rows carrying a
// label.
func boxRowsFromPolygons(rows [][]float64) ([][]float64, error) {
	if len(rows) > 0 && len(rows[0]) == 9 {
		labeled, err := rbox.LabeledPolygonsFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("polygons: %w", err)
		}
		out := make([][]float64, 0, len(labeled))
		for _, b := range rbox.BackwardConvertLabeled(labeled) {
			out = append(out, append(b.Row(), float64(b.Label)))
		}
		return out, nil
	}

	polys, err := rbox.PolygonsFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("polygons: %w", err)
	}
	return boxRows(rbox.BackwardConvert(polys)), nil
}

func boxRows(boxes []rbox.Box) [][]float64 {
	out := make([][]float64, len(boxes))
	for i, b := range boxes {
		out[i] = b.Row()
	}
	return out
}
