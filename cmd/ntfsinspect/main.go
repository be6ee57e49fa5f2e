// Command ntfsinspect is a minimal example wiring of the blockdev, blockio
// and ntfs packages: it opens a device or image file, probes the volume,
// and prints the volume geometry and a one-line summary of the $MFT file
// record; no further MFT records are read. It is not a contractual CLI
// surface: it takes a single -mmap flag and prints a one-line usage message,
// and a full command-line front end is out of this repository's scope.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/distr1/ntfsinspect/blockdev"
	"github.com/distr1/ntfsinspect/blockio"
	"github.com/distr1/ntfsinspect/ntfs"
)

func main() {
	useMmap := flag.Bool("mmap", false, "open the image via mmap instead of a plain file handle")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ntfsinspect [-mmap] <device-or-image>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *useMmap); err != nil {
		log.Fatal(err)
	}
}

func run(path string, useMmap bool) error {
	var src blockdev.Source
	var err error
	if useMmap {
		src, err = blockdev.OpenMmap(path)
	} else {
		src, err = blockdev.Open(path)
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer src.Close()

	device, err := blockio.New(src)
	if err != nil {
		return fmt.Errorf("wrapping %s in an aligned device: %w", path, err)
	}

	vol, err := ntfs.Probe(device)
	if err != nil {
		return fmt.Errorf("probing %s: %w", path, err)
	}

	fmt.Printf("volume: cluster size %d, MFT record size %d, serial %#x\n", vol.ClusterSize, vol.MftRecordSize, vol.SerialNumber)
	printRecord(vol.MFT)
	return nil
}

func printRecord(r *ntfs.FileRecord) {
	name, hasName := r.Name()
	if !hasName {
		name = "(no $FILE_NAME attribute)"
	}
	fmt.Printf("record @%d: in-use=%v dir=%v attrs=%d name=%q\n",
		r.Offset, r.Header.InUse(), r.Header.IsDirectory(), len(r.Attributes), name)
}
