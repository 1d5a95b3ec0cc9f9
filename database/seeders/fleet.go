package seeders

import (
	"log"

	driverModel "fleet-dispatch/models/driver"
	vehicleModel "fleet-dispatch/models/vehicle"

	"gorm.io/gorm"
)

// SeedFleet loads a starter fleet when the tables are empty.
func SeedFleet(db *gorm.DB) {
	log.Printf("🔍 Checking fleet data integrity...")

	vehicles := []vehicleModel.Vehicle{
		{PlateNumber: "FLT-0001", Make: "Toyota", Model: "Hiace", Type: "van", Status: vehicleModel.StatusAvailable},
		{PlateNumber: "FLT-0002", Make: "Toyota", Model: "Corolla", Type: "sedan", Status: vehicleModel.StatusAvailable},
		{PlateNumber: "FLT-0003", Make: "Nissan", Model: "Urvan", Type: "van", Status: vehicleModel.StatusAvailable},
		{PlateNumber: "FLT-0004", Make: "Mitsubishi", Model: "L300", Type: "pickup", Status: vehicleModel.StatusAvailable},
		{PlateNumber: "FLT-0005", Make: "Isuzu", Model: "D-Max", Type: "pickup", Status: vehicleModel.StatusAvailable},
	}

	var vehicleCount int64
	if err := db.Model(&vehicleModel.Vehicle{}).Count(&vehicleCount).Error; err != nil {
		log.Printf("❌ Failed to count vehicles: %v", err)
		return
	}
	if vehicleCount == 0 {
		if err := db.Create(&vehicles).Error; err != nil {
			log.Printf("❌ Failed to seed vehicles: %v", err)
		} else {
			log.Printf("✅ Seeded %d vehicles", len(vehicles))
		}
	}

	drivers := []driverModel.Driver{
		{Name: "Ramon Delgado", Contact: "0917-555-0101", Status: driverModel.StatusAvailable},
		{Name: "Ernesto Villar", Contact: "0917-555-0102", Status: driverModel.StatusAvailable},
		{Name: "Celso Magbanua", Contact: "0917-555-0103", Status: driverModel.StatusAvailable},
	}

	var driverCount int64
	if err := db.Model(&driverModel.Driver{}).Count(&driverCount).Error; err != nil {
		log.Printf("❌ Failed to count drivers: %v", err)
		return
	}
	if driverCount == 0 {
		if err := db.Create(&drivers).Error; err != nil {
			log.Printf("❌ Failed to seed drivers: %v", err)
		} else {
			log.Printf("✅ Seeded %d drivers", len(drivers))
		}
	}
}
