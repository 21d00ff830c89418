// Copyright (c) 2026 Susu Protocol
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package gateway provides a stateless client wrapper over the ledger's
// HTTP API. It holds no business logic; higher layers own caching, retries
// and interpretation of the values read.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fastjson"

	"github.com/susuprotocol/susu-go/conf"
)

const (
	RouteBalance   = "/v2/accounts"
	RouteReadOnly  = "/v2/contracts/call-read"
	RouteBroadcast = "/v2/transactions"
	RouteInfo      = "/v2/info"
	RouteTx        = "/extended/v1/tx"

	ReqPost = "POST"
	ReqGet  = "GET"
)

const jsonPoolSize = 8

var ErrNoHost = errors.New("no host provided")

type Config struct {
	APIHost  string
	APIPort  uint16
	UseHTTPS bool

	// Principal and name of the circle contract, e.g.
	// "SP000...ABC.susu-circles".
	ContractPrincipal string
	ContractName      string
}

type Client struct {
	Config

	url string

	parsers fastjson.ParserPool
	arenas  fastjson.ArenaPool

	registry     metrics.Registry
	requestTimer metrics.Timer
	errorMeter   metrics.Meter
}

func NewClient(config Config) (*Client, error) {
	if config.APIHost == "" {
		return nil, ErrNoHost
	}

	protocol := "http"
	if config.UseHTTPS {
		protocol = "https"
	}

	registry := metrics.NewRegistry()

	c := &Client{
		Config: config,
		url: (&url.URL{
			Scheme: protocol,
			Host:   fmt.Sprintf("%s:%d", config.APIHost, config.APIPort),
		}).String(),
		registry:     registry,
		requestTimer: metrics.GetOrRegisterTimer("gateway.request", registry),
		errorMeter:   metrics.GetOrRegisterMeter("gateway.error", registry),
	}

	for i := 0; i < jsonPoolSize; i++ {
		var a fastjson.Arena
		c.arenas.Put(&a)

		var p fastjson.Parser
		c.parsers.Put(&p)
	}

	return c, nil
}

// Metrics exposes the client's registry so embedders can publish it.
func (c *Client) Metrics() metrics.Registry {
	return c.registry
}

// Request performs one HTTP round trip and returns the raw response body.
// Non-2xx responses yield a *RequestError carrying the status code and
// both bodies. The transport has no cancellation primitive; ctx is checked
// before the call and again after it so a late response for a dead context
// is discarded rather than returned.
func (c *Client) Request(ctx context.Context, path string, method string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	addr := c.url + path

	req.URI().Update(addr)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")

	if body != nil {
		req.SetBody(body)
	}

	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(res)

	start := time.Now()
	err := fasthttp.DoTimeout(req, res, conf.GetRequestTimeout())
	c.requestTimer.UpdateSince(start)

	if err != nil {
		c.errorMeter.Mark(1)
		return nil, errors.Wrapf(err, "request to %q failed", addr)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if res.StatusCode() != http.StatusOK {
		c.errorMeter.Mark(1)

		if reqErr := ParseRequestError(res.Body()); reqErr != nil {
			reqErr.StatusCode = res.StatusCode()
			reqErr.RequestBody = append([]byte(nil), req.Body()...)
			reqErr.ResponseBody = append([]byte(nil), res.Body()...)
			return nil, reqErr
		}

		return nil, &RequestError{
			StatusCode:   res.StatusCode(),
			RequestBody:  append([]byte(nil), req.Body()...),
			ResponseBody: append([]byte(nil), res.Body()...),
		}
	}

	// The fasthttp response buffer is reused after release.
	return append([]byte(nil), res.Body()...), nil
}
