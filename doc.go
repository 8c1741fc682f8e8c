// Package gatt provides the attribute side of a Bluetooth Low Energy GATT
// server, with characteristic descriptors whose values survive reconnects.
//
// The package does not drive a radio. The BLE stack (or a shim process in
// front of it) reports connections and hands ATT requests to a Server,
// which answers them from its attribute table.
//
//
// DESCRIPTORS
//
// Two descriptors are provided. A User Description (0x2901) is a fixed,
// read-only label. A Client Characteristic Configuration Descriptor
// (0x2902, CCCD) is read and written by each peer separately: its value
// is stored in a PeerStore under the peer's address, so a central that
// enabled notifications finds them enabled again when it reconnects.
//
// A peer that never wrote a CCCD reads 0x0000. Writes must be exactly two
// bytes; anything else is rejected with an Invalid Attribute Value Length
// error and nothing is stored.
//
// All CCCDs bound to one PeerStore share the peer's record: a peer that
// subscribes to one characteristic reads the same value from every CCCD
// on that store.
//
//
// STORAGE
//
// PeerStores sit on a kvstore.Store: a bolt database, a CBOR file or
// memory. A process normally opens one store at startup:
//
//     ps, err := gatt.InitDefault(func() (kvstore.Store, error) {
//     	return kvstore.Open(kvstore.NewConfig())
//     })
//
// Servers bind CCCDs created without a store to the process-wide one when
// they start.
//
//
// USAGE
//
//     svc := gatt.NewService(gatt.UUID16(0x180F))
//     level := svc.AddCharacteristic(gatt.UUID16(0x2A19))
//     level.HandleReadFunc(
//     	func(resp gatt.ReadResponseWriter, req *gatt.ReadRequest) {
//     		resp.Write([]byte{batteryLevel()})
//     	})
//     level.HandleNotifyFunc(
//     	func(r gatt.Request, n gatt.Notifier) {
//     		go func() {
//     			for !n.Done() {
//     				n.Write([]byte{batteryLevel()})
//     				time.Sleep(time.Minute)
//     			}
//     		}()
//     	})
//     level.AddUserDescription("Battery Level")
//     level.AddCCCD(nil)
//
//     srv := gatt.NewServer(gatt.Name("gopher"))
//     srv.AddService(svc)
//     if err := srv.Start(); err != nil {
//     	log.Fatal(err)
//     }
//     log.Fatal(srv.Serve(shim))
//
// Only the notify bit of a CCCD starts a notifier; indications are
// persisted but not sent.
package gatt
