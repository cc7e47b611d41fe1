// Package gotmt is the core of a translation-string management backend.
//
// It stores key/value translation entries across languages, fills in new
// languages by calling a machine-translation provider, and notifies clients
// of changes. The heart of the package is the fan-out path: a source string
// and a set of target languages go through a TTL cache and, on a miss, a
// provider adapter that never fails (failures become "[code] text"
// placeholders).
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/gotmt"
//	    "github.com/ZaguanLabs/gotmt/cache"
//	    "github.com/ZaguanLabs/gotmt/provider"
//	)
//
//	func main() {
//	    p := provider.NewHuggingFaceProvider(provider.HuggingFaceConfig{
//	        APIKey: os.Getenv("HUGGINGFACE_API_KEY"),
//	    })
//
//	    o, err := gotmt.NewOrchestrator(gotmt.NewAdapter(p),
//	        gotmt.WithCache(cache.NewInMemoryCache(time.Hour)),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer o.Close()
//
//	    result := o.Fanout(context.Background(), "Hello", []string{"es", "fr"})
//	    fmt.Println(result.Values()) // map[es:Hola fr:Bonjour]
//	}
package gotmt
