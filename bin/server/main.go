package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/rpc"

	"github.com/cmtcrypto/cmt/attest"
	"github.com/cmtcrypto/cmt/logger"

	_ "net/http/pprof"

	_ "github.com/lib/pq"
)

func mainInner() error {
	dsnPtr := flag.String("dsn", "user=foo dbname=cmt sslmode=disable", "postgres dsn")
	dirPtr := flag.String("dir", "db", "node store directory")
	portPtr := flag.Int("port", 3030, "port")
	flag.Parse()

	ctx := logger.NewContext(context.TODO(), logger.New("server"))
	s, err := attest.NewServerWithPostgres(ctx, *dsnPtr, *dirPtr)
	if err != nil {
		return err
	}

	rpc.Register(s)
	rpc.HandleHTTP()

	go func() {
		http.ListenAndServe("localhost:6060", nil)
	}()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", *portPtr))
	if err != nil {
		return err
	}

	fmt.Println("Starting server...")
	http.Serve(listener, nil)
	return nil
}

func main() {
	err := mainInner()
	if err != nil {
		panic(err.Error())
	}
}
