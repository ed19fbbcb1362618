// Package artisanmatch provides an embedded Go client for the artisan
// matching engine backed by Redis or an in-process catalog.
//
// The client wires both matching paths behind a single call: semantic
// ranking through a configured embedding provider, with transparent
// degradation to deterministic keyword matching when the provider is
// absent or unhealthy.
//
//	client, _ := artisanmatch.New(ctx,
//	    artisanmatch.WithRedis("localhost:6379", ""),
//	    artisanmatch.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	client.Profiles().Upsert(ctx, artisanmatch.Profile{
//	    ID:         "a1",
//	    Name:       "Meera Devi",
//	    Profession: "jeweler",
//	    Materials:  []string{"silver"},
//	    Location:   "Jaipur, Rajasthan",
//	})
//
//	resp, _ := client.Match(ctx, artisanmatch.MatchRequest{
//	    Query: "silver jewelry jaipur",
//	})
package artisanmatch
