// Command echoserver is a coroutine-per-connection TCP echo server built
// on top of corort.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/coroutinerun/corort"
	"golang.org/x/sys/unix"
)

func main() {
	port := flag.Int("port", 8080, "TCP port to listen on")
	flag.Parse()

	sched, err := corort.NewScheduler()
	if err != nil {
		log.Fatal(err)
	}
	defer sched.Close()

	sched.Spawn(server, *port)

	if err := sched.Run(); err != nil {
		log.Fatal(err)
	}
}

func server(co *corort.Coroutine, param any) {
	port := param.(int)

	listenFD, err := co.Socket(unix.AF_INET)
	if err != nil {
		log.Printf("echoserver: socket: %v", err)
		return
	}

	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(listenFD, addr); err != nil {
		log.Printf("echoserver: bind: %v", err)
		return
	}
	if err := unix.Listen(listenFD, 16); err != nil {
		log.Printf("echoserver: listen: %v", err)
		return
	}

	log.Printf("echoserver: listening on :%d", port)

	sched := co.Scheduler()
	for {
		clientFD, _, err := co.Accept(listenFD)
		if err != nil {
			log.Printf("echoserver: accept: %v", err)
			return
		}
		sched.Spawn(echo, clientFD)
	}
}

func echo(co *corort.Coroutine, param any) {
	fd := param.(int)
	defer unix.Close(fd)

	log.Printf("echoserver: start connection on fd %d", fd)
	if _, err := co.Send(fd, []byte("Hello from server\n")); err != nil {
		log.Printf("echoserver: send greeting: %v", err)
		return
	}

	buf := make([]byte, 1024)
	for {
		n, err := co.Recv(fd, buf)
		if err != nil || n <= 0 {
			break
		}
		line := string(buf[:n])
		if line == "quit\n" {
			log.Printf("echoserver: quit received from fd %d", fd)
			co.Send(fd, []byte("GoodBye from server\n"))
			break
		}
		fmt.Printf("echoserver: received from %d: %s", fd, line)
		if _, err := co.Send(fd, buf[:n]); err != nil {
			log.Printf("echoserver: send echo: %v", err)
			break
		}
	}
	log.Printf("echoserver: close connection on fd %d", fd)
}
