// Command jpegscan inspects progressive JPEG files at the coefficient level.
//
// Usage:
//
//	jpegscan [-v] info file.jpg
//	jpegscan [-v] dump -o out.coef [-compress zstd|zlib] file.jpg
//	jpegscan [-v] load -o out.jpg [-restart n] file.coef
//	jpegscan [-v] png -o out.png file.jpg
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	jpeg "github.com/tayloraswift/jpeg-sub000"
)

func main() {
	verbose := flag.Bool("v", false, "log every segment to stderr")
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "info":
		err = info(logger, args)
	case "dump":
		err = dump(logger, args)
	case "load":
		err = load(logger, args)
	case "png":
		err = toPNG(logger, args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "jpegscan: %s\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: jpegscan [-v] info|dump|load|png [flags] file\n")
	flag.PrintDefaults()
}

// input parses the subcommand flags and returns its single file argument.
func input(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected one input file", fs.Name())
	}

	return fs.Arg(0), nil
}

func decodeFile(logger *slog.Logger, path string, raw bool) (*jpeg.Spectral, *jpeg.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	s, m, err := jpeg.Decode(bytes.NewReader(data), &jpeg.DecodeOptions{Logger: logger, Raw: raw})
	if err != nil {
		return nil, nil, fmt.Errorf("cant decode %s: %w", path, err)
	}

	return s, m, nil
}

func info(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	path, err := input(fs, args)
	if err != nil {
		return err
	}

	s, m, err := decodeFile(logger, path, true)
	if err != nil {
		return err
	}

	f := s.Frame()
	fmt.Printf("frame: %v, %dx%d, precision %d\n", f.Process, f.Width, f.Height, f.Precision)
	if format, ok := s.Format(); ok {
		fmt.Printf("format: %v\n", format)
	}
	for _, p := range s.Planes {
		fmt.Printf("component %d: sampling %dx%d, %v, %dx%d blocks\n", p.Key, p.H, p.V, p.Quantization, p.UnitsX, p.UnitsY)
	}
	for i, q := range s.Quanta {
		if q != nil {
			fmt.Printf("quantization slot%d: wide %t, dc step %d\n", i, q.Wide, q.Values[0])
		}
	}

	if m.RestartInterval > 0 {
		fmt.Printf("restart interval: %d\n", m.RestartInterval)
	}
	if j := m.JFIF; j != nil {
		fmt.Printf("jfif: %d.%02d, units %d, density %dx%d\n", j.Major, j.Minor, j.Units, j.DensityX, j.DensityY)
	}
	if x := m.Exif; x != nil {
		fmt.Printf("exif: orientation %d, make %q, model %q, software %q, date %q\n",
			x.Orientation, x.Make, x.Model, x.Software, x.DateTime)
		if x.Violation != nil {
			fmt.Printf("exif: %v\n", x.Violation)
		}
	}
	for _, a := range m.Application {
		fmt.Printf("%v: %d bytes\n", a.Marker, len(a.Data))
	}
	for _, c := range m.Comments {
		fmt.Printf("comment: %q\n", c)
	}

	return nil
}

func dump(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	out := fs.String("o", "", "output archive path")
	compression := fs.String("compress", "zstd", "archive compression: zstd or zlib")
	path, err := input(fs, args)
	if err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("dump: output path must be specified")
	}
	c, err := compressionByte(*compression)
	if err != nil {
		return err
	}

	s, _, err := decodeFile(logger, path, true)
	if err != nil {
		return err
	}

	file, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("cant open output %s: %w", *out, err)
	}
	defer file.Close()

	if err := writeArchive(file, s, c); err != nil {
		return fmt.Errorf("cant write archive %s: %w", *out, err)
	}

	return file.Close()
}

func load(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	out := fs.String("o", "", "output JPEG path")
	restart := fs.Int("restart", 0, "restart interval in MCUs")
	path, err := input(fs, args)
	if err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("load: output path must be specified")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s, err := readArchive(data)
	if err != nil {
		return fmt.Errorf("cant read archive %s: %w", path, err)
	}

	file, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("cant open output %s: %w", *out, err)
	}
	defer file.Close()

	if err := jpeg.Encode(file, s, &jpeg.EncodeOptions{Logger: logger, RestartInterval: *restart}); err != nil {
		return fmt.Errorf("cant encode output %s: %w", *out, err)
	}

	return file.Close()
}

func toPNG(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("png", flag.ExitOnError)
	out := fs.String("o", "", "output PNG path")
	path, err := input(fs, args)
	if err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("png: output path must be specified")
	}

	s, _, err := decodeFile(logger, path, false)
	if err != nil {
		return err
	}
	img, err := s.Image()
	if err != nil {
		return err
	}

	file, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("cant open output %s: %w", *out, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("cant encode output %s: %w", *out, err)
	}

	return file.Close()
}
