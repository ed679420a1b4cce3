// Package hue is a client for the local HTTP API of Philips Hue bridges.
//
// A Client finds bridges on the network, pairs with them through the link
// button and sends typed commands to lights, groups and scenes:
//
//	client, err := hue.New("my-app")
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	bridges, err := client.Discover(ctx)
//	if err != nil || len(bridges) == 0 {
//		return err
//	}
//	bridge := bridges[0]
//
//	// Press the link button on the bridge within 30 seconds.
//	cred, err := client.Pair(ctx, bridge)
//	if err != nil {
//		return err
//	}
//	saveKey(cred) // hand it back later with client.Restore
//
//	result, err := client.SetState(ctx, bridge, "1", api.LightState{On: api.Bool(true)})
//	if err != nil {
//		return err
//	}
//	for _, item := range result.Failed() {
//		log.Println(item.Error)
//	}
//
// Errors are typed; match them with errors.Is against the sentinels
// re-exported here (ErrTimeout, ErrConnectionFailed, ErrAuthRequired, ...)
// or with errors.As against the types in package api. A write that the
// bridge applied only in part is not an error: the per-item outcomes are
// in the returned *api.BatchResult.
package hue
