package gatt

// This file includes constants from the BLE spec.

var (
	gatAttrGAPUUID  = UUID16(0x1800)
	gatAttrGATTUUID = UUID16(0x1801)

	gattAttrPrimaryServiceUUID   = UUID16(0x2800)
	gattAttrSecondaryServiceUUID = UUID16(0x2801)
	gattAttrCharacteristicUUID   = UUID16(0x2803)

	gattAttrUserDescriptionUUID            = UUID16(0x2901)
	gattAttrClientCharacteristicConfigUUID = UUID16(0x2902)

	gattAttrDeviceNameUUID = UUID16(0x2A00)
	gattAttrAppearanceUUID = UUID16(0x2A01)
)

// https://developer.bluetooth.org/gatt/characteristics/Pages/CharacteristicViewer.aspx?u=org.bluetooth.characteristic.gap.appearance.xml
var gapCharAppearanceGenericComputer = []byte{0x00, 0x80}

const (
	// attDefaultMTU is the ATT_MTU in effect before an MTU exchange.
	attDefaultMTU = 23

	// attMaxMTU is the largest ATT_MTU the server will agree to.
	attMaxMTU = 517
)
