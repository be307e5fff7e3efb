package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/anirudhraja/protomsg"
)

func main() {
	rt := protomsg.NewRuntime()
	if err := rt.LoadProtoDir("testdata"); err != nil {
		log.Fatalf("Failed to load protos: %v", err)
	}

	fmt.Println("🚀 protomsg Sample App - Dynamic Protobuf Without Generated Code")
	fmt.Printf("Registered types: %v\n", rt.ListMessages())
	fmt.Println(strings.Repeat("=", 70))

	demoDictRoundTrip(rt)
	demoWrapperPresence(rt)
	demoMessageAPI(rt)
	demoDelimitedStream(rt)
	demoScan(rt)

	fmt.Println("\n🎉 Done!")
}

// demoDictRoundTrip encodes a plain dict to wire bytes and decodes it
// back, showing the JSON-mapping forms: 64-bit ints as strings, enums by
// name, timestamps as RFC3339.
func demoDictRoundTrip(rt *protomsg.Runtime) {
	fmt.Println("\n📤 Dict round trip")

	order := map[string]interface{}{
		"id":       "9007199254740993", // beyond float64 precision, string form keeps it exact
		"customer": "Ada",
		"items": []interface{}{
			map[string]interface{}{
				"sku":       "B-101",
				"title":     "The Go Programming Language",
				"quantity":  1,
				"unitPrice": 39.99,
				"category":  "CATEGORY_BOOKS",
				"tags":      []interface{}{"golang", "classic"},
			},
		},
		"countsByCategory": map[string]interface{}{"books": 1},
		"placedAt":         "2026-08-25T10:00:00Z",
		"loyaltyPoints":    "120",
		"cardLast4":        "4242",
	}

	data, err := rt.EncodeDict(order, "shop.v1.Order")
	if err != nil {
		log.Fatalf("EncodeDict failed: %v", err)
	}
	fmt.Printf("✅ Encoded %d bytes: %s\n", len(data), hex.EncodeToString(data))

	decoded, err := rt.ParseToDict(data, "shop.v1.Order")
	if err != nil {
		log.Fatalf("ParseToDict failed: %v", err)
	}
	fmt.Printf("✅ Decoded id=%v placedAt=%v loyaltyPoints=%v\n",
		decoded["id"], decoded["placedAt"], decoded["loyaltyPoints"])
}

// demoWrapperPresence shows the difference between a wrapper field left
// unset and one set to its zero value.
func demoWrapperPresence(rt *protomsg.Runtime) {
	fmt.Println("\n🎯 Wrapper presence: absent vs empty")

	bare, err := rt.EncodeDict(map[string]interface{}{"id": 1}, "shop.v1.Order")
	if err != nil {
		log.Fatalf("EncodeDict failed: %v", err)
	}
	noted, err := rt.EncodeDict(map[string]interface{}{"id": 1, "giftNote": ""}, "shop.v1.Order")
	if err != nil {
		log.Fatalf("EncodeDict failed: %v", err)
	}
	fmt.Printf("   without gift_note: %d bytes\n", len(bare))
	fmt.Printf("   with empty gift_note: %d bytes (the wrapper encodes even when empty)\n", len(noted))

	decoded, err := rt.ParseToDict(noted, "shop.v1.Order")
	if err != nil {
		log.Fatalf("ParseToDict failed: %v", err)
	}
	_, present := decoded["giftNote"]
	fmt.Printf("   round-tripped giftNote present: %v\n", present)
}

// demoMessageAPI works with the Message type directly: presence-aware
// Set/Get/Has, native time.Time for timestamps, oneofs, JSON output.
func demoMessageAPI(rt *protomsg.Runtime) {
	fmt.Println("\n📋 Message API")

	m, err := rt.NewMessage("shop.v1.Order")
	if err != nil {
		log.Fatalf("NewMessage failed: %v", err)
	}
	m.Set("id", int64(7))
	m.Set("customer", "Grace")
	m.Set("placed_at", time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC))
	m.Set("promo_code", "WELCOME")
	m.Set("card_last4", "4242")
	m.Set("invoice_ref", "INV-19") // evicts card_last4: one payment at a time

	item, err := rt.NewMessage("shop.v1.Item")
	if err != nil {
		log.Fatalf("NewMessage failed: %v", err)
	}
	item.Set("sku", "G-7")
	item.Set("title", "Chess Set")
	item.Set("quantity", int32(2))
	m.Set("items", []interface{}{item})

	name, _ := m.WhichOneof("payment")
	fmt.Printf("   selected payment: %s (card_last4 set: %v)\n", name, m.Has("card_last4"))

	data, err := protomsg.Marshal(m)
	if err != nil {
		log.Fatalf("Marshal failed: %v", err)
	}
	fmt.Printf("   encoded %d bytes\n", len(data))

	jsonOut, err := protomsg.ToJSON(m)
	if err != nil {
		log.Fatalf("ToJSON failed: %v", err)
	}
	fmt.Printf("   JSON: %s\n", jsonOut)
}

// demoDelimitedStream frames several messages on one stream with varint
// length prefixes and reads them back.
func demoDelimitedStream(rt *protomsg.Runtime) {
	fmt.Println("\n🔄 Delimited stream")

	var buf bytes.Buffer
	for i, customer := range []string{"Ada", "Grace", "Barbara"} {
		m, err := rt.NewMessage("shop.v1.Order")
		if err != nil {
			log.Fatalf("NewMessage failed: %v", err)
		}
		m.Set("id", int64(i+1))
		m.Set("customer", customer)
		if _, err := m.WriteDelimitedTo(&buf); err != nil {
			log.Fatalf("WriteDelimitedTo failed: %v", err)
		}
	}
	fmt.Printf("   wrote 3 orders in %d bytes\n", buf.Len())

	for {
		m, err := rt.NewMessage("shop.v1.Order")
		if err != nil {
			log.Fatalf("NewMessage failed: %v", err)
		}
		if err := protomsg.ReadDelimitedFrom(&buf, m); err == io.EOF {
			break
		} else if err != nil {
			log.Fatalf("ReadDelimitedFrom failed: %v", err)
		}
		fmt.Printf("   read order id=%v customer=%v\n", m.Get("id"), m.Get("customer"))
	}
}

// demoScan decodes wire bytes straight into a Go struct.
func demoScan(rt *protomsg.Runtime) {
	fmt.Println("\n🔍 Scan into a struct")

	data, err := rt.EncodeDict(map[string]interface{}{
		"sku":      "M-33",
		"title":    "Blue Train",
		"quantity": 3,
	}, "shop.v1.Item")
	if err != nil {
		log.Fatalf("EncodeDict failed: %v", err)
	}

	type Item struct {
		Sku      string
		Title    string
		Quantity int32
	}
	var it Item
	if err := rt.Scan(data, &it); err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
	fmt.Printf("   scanned: %+v\n", it)
}
