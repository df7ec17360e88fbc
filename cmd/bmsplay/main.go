package main

import (
	"flag"
	"log"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/tearbeat/bmscore"
	"github.com/tearbeat/bmscore/internal/bmsconfig"
)

var (
	flagHz     = flag.Int("hz", 44100, "output sampling rate")
	flagConfig = flag.String("config", "bmsplay.yaml", "path to a bmsconfig YAML file")
	flagNoUI   = flag.Bool("no-ui", false, "disable terminal rendering")
)

// portaudioLatencyGuess is the device-latency value handed to NewMixer
// before the stream is open. The core takes latency as a fixed
// construction parameter (spec §4.1 has no live-update path), so the demo
// picks a representative default for a small buffer at typical rates.
const portaudioLatencyGuess = 10 * time.Millisecond

// buildDemoChart synthesizes a short, eight-note single-lane chart purely to
// give this demo harness something to drive through Mixer/Player/Cursor.
// Building a Chart from an actual BMS file is an external collaborator's
// job (spec §1: BMS text parsing and the chart-building pipeline are out
// of scope for this core) — a real frontend hands a Chart built elsewhere
// to bmscore.NewCursor exactly as this does.
func buildDemoChart(samplingRate uint32) *bmscore.Chart {
	const bpm = 120.0
	beat := time.Duration(float64(time.Minute) / bpm)

	beep := make([]bmscore.Sample, samplingRate/10) // 100ms test tone
	for i := range beep {
		t := float64(i) / float64(samplingRate)
		v := float32(0.2 * math.Sin(2*math.Pi*880*t))
		beep[i] = bmscore.Sample{Left: v, Right: v}
	}

	chart := &bmscore.Chart{
		Metadata: bmscore.Metadata{
			Title:         "bmsplay demo pattern",
			Playstyle:     bmscore.Playstyle7K,
			NoteCount:     8,
			ChartDuration: beat * 9,
			LoudnessLUFS:  -14,
			BPMRange:      bmscore.BPMRange{Initial: bpm, Min: bpm, Max: bpm, Main: bpm},
		},
		Media: bmscore.Media{
			SamplingRate: samplingRate,
			WavSlots:     [][]bmscore.Sample{beep},
		},
	}
	chart.Timeline.BPMSections = []bmscore.BPMChange{{Position: 0, BPM: bpm, YPos: 0, ScrollSpeed: 1}}

	lane := chart.Lane(bmscore.LaneP1Key1)
	lane.Playable = true
	lane.Visible = true
	lane.Audible = true
	for i := 0; i < 8; i++ {
		lane.Notes = append(lane.Notes, bmscore.Note{
			Kind:      bmscore.NoteSimple,
			Timestamp: beat * time.Duration(i+1),
			YPos:      float64(i + 1),
			WavSlot:   0,
		})
	}
	chart.Lane(bmscore.LaneBGM).Audible = true

	return chart
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("bmsplay: ")
	flag.Parse()

	cfg, err := bmsconfig.Load(*flagConfig)
	if err != nil {
		log.Fatal(err)
	}

	rate := uint32(*flagHz)
	chart := buildDemoChart(rate)

	cursor := bmscore.NewCursor(chart, rate, false)
	mapper, err := bmscore.NewMapper(cfg, chart.Metadata.Playstyle)
	if err != nil {
		log.Fatal(err)
	}
	score := bmscore.NewScore()

	logger := log.New(log.Writer(), log.Prefix(), 0)
	mixer := bmscore.NewMixer(rate, portaudioLatencyGuess, logger)

	start := time.Now()
	wallNow := func() time.Duration { return time.Since(start) }
	player := bmscore.NewPlayer(mixer, wallNow, logger)

	if err := player.AddCursor(cursor, mapper); err != nil {
		log.Fatal(err)
	}
	mixer.AddGenerator(player, player)

	if err := portaudio.Initialize(); err != nil {
		log.Fatal(err)
	}

	ap := NewAudioPlayer(mixer, player, cursor, score, *flagNoUI, wallNow)
	if err := ap.Run(); err != nil {
		log.Fatal(err)
	}
}
