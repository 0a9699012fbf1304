package main

// Scripted THZ/LWZ heat pump for bench testing the gateway without
// hardware. Listens on a TCP port, answers the service interface
// handshake and replies to get/set telegrams from a register image
// generated out of the firmware profile. Written values are kept, so a
// set followed by the gateway's readback confirms.
//
//	go run test/thz.go -listen :2008 -firmware 214

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"strconv"

	thz "thzgateway/pkg/protocol/thz/runtime"
)

var (
	listen   = flag.String("listen", ":2008", "listen address")
	firmware = flag.Uint("firmware", 214, "firmware version reported to the gateway")
)

const (
	startOfText     byte = 0x02
	dataLinkEscape  byte = 0x10
	telegramStart   byte = 0x01
	endOfText       byte = 0x03
	setDirectionTag byte = 0x80
)

func main() {
	flag.Parse()

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Println("listen:", err)
		return
	}
	fmt.Printf("thz simulator firmware %d listening on %s\n", *firmware, *listen)

	image := buildImage(uint16(*firmware))
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go serve(conn, image)
	}
}

// buildImage renders one payload per read block of the firmware profile
// plus the firmware version register. Bytes follow a ramp pattern, which
// decodes to stable nonsense values, good enough to watch data flow.
func buildImage(version uint16) map[string][]byte {
	image := make(map[string][]byte)
	image[hex.EncodeToString(thz.FirmwareRegister)] = []byte{byte(version >> 8), byte(version)}

	profile := thz.ResolveProfile(strconv.FormatUint(uint64(version), 10))
	for _, name := range profile.AllReadBlocks() {
		block, ok := profile.Block(name)
		if !ok {
			continue
		}
		size := 0
		for _, entry := range block.Entries {
			if end := entry.Offset + entry.Length; end > size {
				size = end
			}
		}
		// entry offsets count from the response checksum byte, the
		// payload itself starts after checksum and address
		payload := make([]byte, size-1-len(block.Command))
		for i := range payload {
			payload[i] = byte(i % 8)
		}
		image[block.Command.String()] = payload
	}
	return image
}

func serve(conn net.Conn, image map[string][]byte) {
	defer conn.Close()
	fmt.Printf("%s connected\n", conn.RemoteAddr())

	r := bufio.NewReader(conn)
	var pending []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			fmt.Printf("%s gone: %v\n", conn.RemoteAddr(), err)
			return
		}
		switch b {
		case startOfText:
			// greeting or exchange close, both want a DLE back
			if _, err := conn.Write([]byte{dataLinkEscape}); err != nil {
				return
			}
		case dataLinkEscape:
			// the host acknowledged our header, hand over the data frame
			if pending != nil {
				if _, err := conn.Write(pending); err != nil {
					return
				}
				pending = nil
			}
		case telegramStart:
			raw, err := readTelegram(r, b)
			if err != nil {
				fmt.Printf("%s bad telegram: %v\n", conn.RemoteAddr(), err)
				return
			}
			pending = handleTelegram(raw, image)
			if _, err := conn.Write([]byte{dataLinkEscape, startOfText}); err != nil {
				return
			}
		}
	}
}

// readTelegram accumulates bytes until the frame decodes with a valid
// checksum. Waiting for the 10 03 footer alone is not enough, escaped
// payload bytes can fake it.
func readTelegram(r *bufio.Reader, first byte) ([]byte, error) {
	raw := []byte{first}
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
		if len(raw) >= 6 && raw[len(raw)-2] == dataLinkEscape && raw[len(raw)-1] == endOfText {
			if _, err := thz.DecodeResponse(raw); err == nil {
				return raw, nil
			}
		}
		if len(raw) > 64 {
			return nil, fmt.Errorf("telegram exceeds 64 bytes: %x", raw)
		}
	}
}

// handleTelegram answers a get with the stored register payload and
// applies a set to the image. The returned frame is sent once the host
// asks for data; sets return nil, their acknowledge is the answer.
func handleTelegram(raw []byte, image map[string][]byte) []byte {
	body, err := thz.DecodeResponse(raw)
	if err != nil || len(body) < 2 {
		return nil
	}

	if raw[1] == setDirectionTag {
		// parameter addresses are three bytes on every write table
		if len(body) < 5 {
			return nil
		}
		address := body[1:4]
		value := body[4:]
		image[hex.EncodeToString(address)] = value
		fmt.Printf("set %x = %x\n", address, value)
		return nil
	}

	address := body[1:]
	payload, ok := image[hex.EncodeToString(address)]
	if !ok {
		payload = []byte{0x00, 0x00}
	}
	return thz.NewTelegram(thz.Get, address, payload)
}
