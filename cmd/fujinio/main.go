// Command fujinio runs the FujiNet-NIO I/O runtime: the device registry,
// routing stage, and whichever transports/devices the config enables.
package main

func main() {
	Execute()
}
