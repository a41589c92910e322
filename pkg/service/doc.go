// Package service runs the provisioning protocol for one device.
//
// A Service sits between a BLE peripheral and the Wi-Fi subsystem:
//   - attribute writes are reassembled into command frames and dispatched
//   - responses and scan results are streamed back as paced notifications
//   - the provisioning state is mirrored on the status characteristic
//   - a successful join is reported, the peer is disconnected and the
//     device is reset
//
// All session state is owned by the goroutine running Run. Peripheral
// callbacks, scan results and join outcomes reach it through queues.
//
// Example usage:
//
//	store := credstore.NewMemory()
//	radio, _ := sim.New(sim.DefaultConfig())
//	prov := wifi.NewProvisioner(wifi.ProvisionerConfig{}, radio, store, nil)
//
//	svc, err := service.New(service.DefaultConfig(), service.Deps{
//		Peripheral:  emulator,
//		Store:       store,
//		Scanner:     radio,
//		Provisioner: prov,
//	})
//	prov.SetReport(svc.OnJoinResult)
//	emulator.SetHandler(svc)
//	err = svc.Run(ctx)
package service
