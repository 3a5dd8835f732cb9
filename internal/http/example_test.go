package http_test

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"

	httpserver "github.com/fyrsmithlabs/locus/internal/http"
	"github.com/fyrsmithlabs/locus/internal/services"
	"github.com/fyrsmithlabs/locus/pkg/registry"
	"go.uber.org/zap"
)

// ExampleServer serves a bootstrapped registry.
func ExampleServer() {
	reg := registry.New()
	provisioned, err := reg.Bootstrap(context.Background(), services.NewCatalog().DefaultTable())
	if err != nil {
		panic(err)
	}
	defer provisioned.Close()

	server, err := httpserver.NewServer(reg, zap.NewNop(), nil)
	if err != nil {
		panic(err)
	}

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/v1/greet?name=Ada")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	fmt.Println(resp.StatusCode)
	fmt.Print(string(body))
	// Output:
	// 200
	// {"greeting":"Hello, Ada!","style":"english"}
}
